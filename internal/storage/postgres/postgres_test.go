package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/types"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewWithDB(db), mock
}

var studentColumns = []string{"id", "name", "email", "image_name"}

func TestPostgres_CreateStudent(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "students"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectCommit()

	created, err := p.CreateStudent(context.Background(), types.Student{ID: 99, Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "Ann", created.Name)
	assert.Nil(t, created.ImageName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetStudentByID(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "students" WHERE "students"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(studentColumns).AddRow(2, "Bob", "b@x.com", "2_Bob.jpg"))

	got, err := p.GetStudentByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
	require.NotNil(t, got.ImageName)
	assert.Equal(t, "2_Bob.jpg", *got.ImageName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetStudentByID_NotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "students"`).
		WillReturnRows(sqlmock.NewRows(studentColumns))

	_, err := p.GetStudentByID(context.Background(), 8)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "8")
}

func TestPostgres_GetStudents(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "students" ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(studentColumns).
			AddRow(1, "Ann", "a@x.com", nil).
			AddRow(2, "Bob", "b@x.com", nil))

	students, err := p.GetStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ann", students[0].Name)
	assert.Equal(t, "Bob", students[1].Name)
}

func TestPostgres_GetStudents_Empty(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "students"`).WillReturnRows(sqlmock.NewRows(studentColumns))

	students, err := p.GetStudents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
}

func TestPostgres_UpdateStudentByID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "updated", affected: 1},
		{name: "missing row", affected: 0, wantErr: storage.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "students" SET`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			got, err := p.UpdateStudentByID(context.Background(), 5, types.Student{Name: "Carl", Email: "c@x.com"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(5), got.ID)
			assert.Equal(t, "Carl", got.Name)
			assert.Nil(t, got.ImageName)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_UpdateStudentByID_Error(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "students"`).WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	_, err := p.UpdateStudentByID(context.Background(), 5, types.Student{Name: "Carl", Email: "c@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UpdateStudentByID")
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestPostgres_DeleteStudentByID(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "students"`).
		WillReturnRows(sqlmock.NewRows(studentColumns).AddRow(3, "Cid", "c@x.com", nil))
	mock.ExpectExec(`DELETE FROM "students"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := p.DeleteStudentByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed.ID)
	assert.Equal(t, "Cid", removed.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteStudentByID_NotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "students"`).WillReturnRows(sqlmock.NewRows(studentColumns))
	mock.ExpectRollback()

	_, err := p.DeleteStudentByID(context.Background(), 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
