// Package service holds the Students workflows that span both the Record
// Store and the Image Store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thedynamicdoers/institute-api/internal/images"
	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/types"
)

// ErrForeignImage is returned by Update when the payload names an image
// other than the one already attached to the student.
var ErrForeignImage = errors.New("imageName can only be kept or cleared")

// Students coordinates a Record Store and an Image Store. Neither store is
// locked across calls: concurrent uploads for the same id and name are
// last-writer-wins.
type Students struct {
	storage        storage.Storage
	images         images.Store
	deleteOnRemove bool
}

// Option configures Students.
type Option func(*Students)

// WithDeleteOnRemove makes Delete remove the student's image as well.
func WithDeleteOnRemove(enabled bool) Option {
	return func(s *Students) { s.deleteOnRemove = enabled }
}

// NewStudents wires the two stores together.
func NewStudents(st storage.Storage, im images.Store, opts ...Option) *Students {
	s := &Students{storage: st, images: im}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWithImage persists a new student and, when image is non-nil,
// attaches it. The image name embeds the assigned id, so the record is
// written first and updated once the file is in place.
//
// On failure the steps already taken are undone: a failed image write
// deletes the new record; a failed second record write deletes the file
// and the record. Undo failures are logged and the original error is
// returned. A name that cannot appear in an image file name is rejected
// with images.ErrInvalidName before anything is written.
func (s *Students) CreateWithImage(ctx context.Context, name, email string, image []byte) (types.Student, error) {
	if image != nil {
		if err := images.CheckName(images.FileName(0, name)); err != nil {
			return types.Student{}, fmt.Errorf("student name: %w", err)
		}
	}

	created, err := s.storage.CreateStudent(ctx, types.Student{Name: name, Email: email})
	if err != nil {
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}

	if image == nil {
		return created, nil
	}

	imageName := images.FileName(created.ID, created.Name)

	if err := s.images.Write(ctx, imageName, image); err != nil {
		s.rollbackRecord(ctx, created.ID)
		return types.Student{}, fmt.Errorf("store image: %w", err)
	}

	created.ImageName = &imageName

	updated, err := s.storage.UpdateStudentByID(ctx, created.ID, created)
	if err != nil {
		s.rollbackImage(ctx, imageName)
		s.rollbackRecord(ctx, created.ID)
		return types.Student{}, fmt.Errorf("attach image: %w", err)
	}

	return updated, nil
}

// Update replaces every field of student id. The payload may keep the
// stored imageName or clear it with null; any other value fails with
// ErrForeignImage so that a record never points at another student's file.
func (s *Students) Update(ctx context.Context, id int64, student types.Student) (types.Student, error) {
	current, err := s.storage.GetStudentByID(ctx, id)
	if err != nil {
		return types.Student{}, err
	}

	if !student.HasImage() {
		student.ImageName = nil
	} else if !current.HasImage() || *student.ImageName != *current.ImageName {
		return types.Student{}, fmt.Errorf("student %d: %q: %w", id, *student.ImageName, ErrForeignImage)
	}

	return s.storage.UpdateStudentByID(ctx, id, student)
}

// Image returns the stored JPEG bytes for student id. A missing student
// yields an error wrapping storage.ErrNotFound. The stored image name is
// authoritative; records without one fall back to {id}_{name}.jpg, which
// for a student that never had an image fails with images.ErrNotExist.
func (s *Students) Image(ctx context.Context, id int64) ([]byte, error) {
	student, err := s.storage.GetStudentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := images.FileName(student.ID, student.Name)
	if student.HasImage() {
		name = *student.ImageName
	}

	data, err := s.images.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("student %d: %w", id, err)
	}

	return data, nil
}

// Delete removes the record. Its image is kept unless the service was
// built WithDeleteOnRemove(true); a failed image removal is only logged
// because the record is already gone.
func (s *Students) Delete(ctx context.Context, id int64) (types.Student, error) {
	removed, err := s.storage.DeleteStudentByID(ctx, id)
	if err != nil {
		return types.Student{}, err
	}

	if s.deleteOnRemove && removed.HasImage() {
		if err := s.images.Delete(ctx, *removed.ImageName); err != nil && !errors.Is(err, images.ErrNotExist) {
			slog.Error("failed to delete student image",
				slog.Int64("id", id),
				slog.String("image", *removed.ImageName),
				slog.String("error", err.Error()))
		}
	}

	return removed, nil
}

func (s *Students) rollbackRecord(ctx context.Context, id int64) {
	if _, err := s.storage.DeleteStudentByID(context.WithoutCancel(ctx), id); err != nil {
		slog.Error("rollback: failed to delete student",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
	}
}

func (s *Students) rollbackImage(ctx context.Context, name string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), name); err != nil && !errors.Is(err, images.ErrNotExist) {
		slog.Error("rollback: failed to delete image",
			slog.String("image", name),
			slog.String("error", err.Error()))
	}
}
