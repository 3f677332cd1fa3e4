// Package local stores images as files in a single directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/thedynamicdoers/institute-api/internal/images"
)

var _ images.Store = (*Dir)(nil)

// Dir is an images.Store rooted at one flat directory.
type Dir struct {
	root string
}

// New creates root (and parents) when missing.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local.New: create dir: %w", err)
	}

	return &Dir{root: root}, nil
}

func (d *Dir) path(name string) (string, error) {
	if err := images.CheckName(name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, name), nil
}

// Write replaces the file atomically: data goes to a temp file in the same
// directory which is then renamed over the target.
func (d *Dir) Write(_ context.Context, name string, data []byte) error {
	target, err := d.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write image %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}

	return nil
}

func (d *Dir) Read(_ context.Context, name string) ([]byte, error) {
	target, err := d.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read image %s: %w", name, images.ErrNotExist)
		}
		return nil, fmt.Errorf("read image %s: %w", name, err)
	}

	return data, nil
}

func (d *Dir) Delete(_ context.Context, name string) error {
	target, err := d.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete image %s: %w", name, images.ErrNotExist)
		}
		return fmt.Errorf("delete image %s: %w", name, err)
	}

	return nil
}
