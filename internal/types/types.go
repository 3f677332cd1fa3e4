// Package types holds the shared data structures used across the
// application. Handlers, storage and the image layer all import types
// without depending on each other.
package types

// Student represents one enrolled student.
//
// Struct tags:
//
//  1. json:"..."     — wire names used by the REST API.
//  2. validate:"..." — rules checked by go-playground/validator.
//
// ImageName is a pointer so that "no image attached" encodes as null
// rather than an empty string.
type Student struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"      validate:"required"`
	Email     string  `json:"email"     validate:"required,email"`
	ImageName *string `json:"imageName"`
}

// HasImage reports whether an image file has been attached to the record.
func (s Student) HasImage() bool {
	return s.ImageName != nil && *s.ImageName != ""
}
