// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

const createTable = `
		CREATE TABLE IF NOT EXISTS students (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT    NOT NULL,
			email      TEXT    NOT NULL,
			image_name TEXT
		)
	`

var _ storage.Storage = (*SQLite)(nil)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

// New opens (creating if needed) the SQLite database file at path and
// prepares the schema.
func New(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	s, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewWithDB wraps an already opened *sql.DB and creates the students
// table if it does not exist yet. Used by New and by tests.
func NewWithDB(db *sql.DB) (*SQLite, error) {
	// CREATE TABLE IF NOT EXISTS is idempotent — safe on every startup.
	if _, err := db.Exec(createTable); err != nil {
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// CreateStudent inserts a new row and returns it with the id assigned by
// SQLite's AUTOINCREMENT.
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO students (name, email, image_name) VALUES (?, ?, ?)",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, student.Name, student.Email, nullString(student.ImageName))
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	student.ID = lastID
	return student, nil
}

// GetStudentByID fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, name, email, image_name FROM students WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.NotFound(id)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// GetStudents returns all student rows ordered by id, which for
// AUTOINCREMENT keys is insertion order.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, name, email, image_name FROM students ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty table encodes as [] rather than null.
	students := make([]types.Student, 0)

	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}

		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

// UpdateStudentByID overwrites every column of the row. A nil image name
// in the payload clears the stored one.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id int64, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"UPDATE students SET name = ?, email = ?, image_name = ? WHERE id = ?",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, student.Name, student.Email, nullString(student.ImageName), id)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Student{}, storage.NotFound(id)
	}

	student.ID = id
	return student, nil
}

// DeleteStudentByID removes a row and returns it in the same statement.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id int64) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"DELETE FROM students WHERE id = ? RETURNING id, name, email, image_name",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.NotFound(id)
		}
		return types.Student{}, fmt.Errorf("DeleteStudentByID: scan: %w", err)
	}

	return student, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanStudent reads the four columns in SELECT order.
func scanStudent(row scanner) (types.Student, error) {
	var (
		student   types.Student
		imageName sql.NullString
	)

	if err := row.Scan(&student.ID, &student.Name, &student.Email, &imageName); err != nil {
		return types.Student{}, err
	}

	if imageName.Valid {
		student.ImageName = &imageName.String
	}

	return student, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
