// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Success responses may return any JSON shape (a student, a list...).
// Error responses always look like:
//
//	{ "status": "error", "error": "field Name is required" }
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the standard envelope returned for error cases.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes data as JSON with the given HTTP status code.
// Header() → WriteHeader() → body, in that order.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// WriteBytes writes a raw body with an explicit content type.
func WriteBytes(w http.ResponseWriter, status int, contentType string, data []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)

	_, err := w.Write(data)
	return err
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator field errors into a single
// human-readable Response, one sentence per failing field:
//
//	{ "status": "error", "error": "field Name is required, field Email must be a valid email address" }
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}
