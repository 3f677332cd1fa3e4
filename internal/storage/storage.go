// Package storage defines the Storage interface — the contract any
// Record Store backend must satisfy to serve the Students resource.
//
// Handlers and services depend only on this interface, so the SQLite,
// PostgreSQL and in-memory backends are interchangeable from main.go.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/thedynamicdoers/institute-api/internal/types"
)

// ErrNotFound is returned (wrapped) by every backend when no student row
// matches the requested id.
var ErrNotFound = errors.New("student not found")

// Storage is the Record Store contract.
type Storage interface {
	// CreateStudent inserts a new student and returns the stored record
	// including the id assigned by the backend. Any id on the input is
	// ignored.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudentByID fetches a single student by primary key.
	// Returns an error wrapping ErrNotFound on miss.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudents returns every student in insertion order.
	// Returns an empty slice (not nil) if there are none.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// UpdateStudentByID replaces name, email and image name of an existing
	// student wholesale. Returns the payload with its ID set to id, or an
	// error wrapping ErrNotFound when no row matched.
	UpdateStudentByID(ctx context.Context, id int64, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student and returns the removed record.
	// Returns an error wrapping ErrNotFound on miss.
	DeleteStudentByID(ctx context.Context, id int64) (types.Student, error)
}

// NotFound builds the error returned for a missing id. The message names
// the id so it can be surfaced to clients as-is.
func NotFound(id int64) error {
	return fmt.Errorf("student with id %d: %w", id, ErrNotFound)
}
