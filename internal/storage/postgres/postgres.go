// Package postgres implements storage.Storage on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/types"
)

var _ storage.Storage = (*Postgres)(nil)

// studentRow is the table model; types.Student stays free of gorm tags.
type studentRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	ImageName *string
}

func (studentRow) TableName() string { return "students" }

func (r studentRow) toStudent() types.Student {
	return types.Student{ID: r.ID, Name: r.Name, Email: r.Email, ImageName: r.ImageName}
}

// Postgres is the gorm-backed Record Store.
type Postgres struct {
	db *gorm.DB
}

// New connects to dsn and migrates the students table.
func New(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	if err := db.AutoMigrate(&studentRow{}); err != nil {
		return nil, fmt.Errorf("postgres.New: migrate: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already opened gorm handle without migrating.
func NewWithDB(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateStudent inserts a row and returns it with the serial id.
func (p *Postgres) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	row := studentRow{Name: student.Name, Email: student.Email, ImageName: student.ImageName}

	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}

	return row.toStudent(), nil
}

// GetStudentByID looks a row up by primary key.
func (p *Postgres) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	var row studentRow

	if err := p.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Student{}, storage.NotFound(id)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: %w", err)
	}

	return row.toStudent(), nil
}

// GetStudents returns all rows ordered by id.
func (p *Postgres) GetStudents(ctx context.Context) ([]types.Student, error) {
	var rows []studentRow

	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetStudents: %w", err)
	}

	students := make([]types.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}

	return students, nil
}

// UpdateStudentByID writes every column through a map so that a nil image
// name is stored as NULL instead of being skipped as a zero value.
func (p *Postgres) UpdateStudentByID(ctx context.Context, id int64, student types.Student) (types.Student, error) {
	result := p.db.WithContext(ctx).
		Model(&studentRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":       student.Name,
			"email":      student.Email,
			"image_name": student.ImageName,
		})
	if result.Error != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return types.Student{}, storage.NotFound(id)
	}

	student.ID = id
	return student, nil
}

// DeleteStudentByID reads and deletes the row in one transaction and
// returns what was removed.
func (p *Postgres) DeleteStudentByID(ctx context.Context, id int64) (types.Student, error) {
	var row studentRow

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Student{}, storage.NotFound(id)
		}
		return types.Student{}, fmt.Errorf("DeleteStudentByID: %w", err)
	}

	return row.toStudent(), nil
}
