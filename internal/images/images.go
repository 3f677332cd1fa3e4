// Package images defines the Image Store: flat, filename-keyed storage
// for student profile JPEGs.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist is returned (wrapped) when no image is stored under a name.
var ErrNotExist = errors.New("image does not exist")

// ErrInvalidName is returned (wrapped) for names that are not a single
// path element.
var ErrInvalidName = errors.New("image name must be a single path element")

// ContentType is the media type every stored image is served with.
const ContentType = "image/jpeg"

// Store is implemented by the local directory and the minio backends.
// Write overwrites an existing image of the same name.
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// FileName returns the on-disk name for a student's image: {id}_{name}.jpg.
func FileName(id int64, studentName string) string {
	return fmt.Sprintf("%d_%s.jpg", id, studentName)
}

// CheckName rejects names that a flat store cannot hold.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
