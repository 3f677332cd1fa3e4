// Package student contains the HTTP handlers for the Student resource.
//
// Handlers are built by factory functions that receive their
// dependencies once at startup and return an http.HandlerFunc:
//
//	router.HandleFunc("POST /api/Students", student.New(storage))
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/thedynamicdoers/institute-api/internal/images"
	"github.com/thedynamicdoers/institute-api/internal/service"
	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/types"
	"github.com/thedynamicdoers/institute-api/internal/utils/response"
)

// validate caches struct metadata between requests; it is safe for
// concurrent use.
var validate = validator.New()

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/Students
//
// Request body (JSON):
//
//	{ "name": "Ann", "email": "a@x.com" }
//
// Any "id" or "imageName" in the body is ignored: ids are assigned by the
// store and images are only attached through /withImage.
//
// Success response (201 Created): the stored student.
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		student.ID = 0
		student.ImageName = nil

		created, err := storage.CreateStudent(r.Context(), student)
		if err != nil {
			writeStoreError(w, "error creating student", err)
			return
		}

		slog.Info("student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// NewWithImage handles POST /api/Students/withImage
//
// multipart/form-data fields: name, email and an optional "image" file.
// The body is capped at maxUpload bytes (413 beyond that).
//
// Success response (201 Created): the stored student, with imageName set
// to "{id}_{name}.jpg" when an image was sent.
// ─────────────────────────────────────────────────────────────────────────────
func NewWithImage(students *service.Students, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student with image")

		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			writeBodyError(w, err)
			return
		}

		input := types.Student{
			Name:  r.FormValue("name"),
			Email: r.FormValue("email"),
		}
		if !validStudent(w, input) {
			return
		}

		image, err := readImage(r)
		if err != nil {
			writeBodyError(w, err)
			return
		}

		created, err := students.CreateWithImage(r.Context(), input.Name, input.Email, image)
		if err != nil {
			writeStoreError(w, "error creating student with image", err)
			return
		}

		slog.Info("student created",
			slog.Int64("id", created.ID),
			slog.Bool("image", created.HasImage()))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/Students/{id}
//
// 200 with the student, 404 when no student has that id.
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student", slog.Int64("id", id))

		student, err := storage.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, "error getting student", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetImage handles GET /api/Students/{id}/getImage
//
// 200 with the raw JPEG bytes (Content-Type: image/jpeg).
// 404 when the student does not exist; 500 when the image cannot be read.
// ─────────────────────────────────────────────────────────────────────────────
func GetImage(students *service.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student image", slog.Int64("id", id))

		data, err := students.Image(r.Context(), id)
		if err != nil {
			writeStoreError(w, "error getting student image", err)
			return
		}

		response.WriteBytes(w, http.StatusOK, images.ContentType, data)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/Students
//
// 200 with every student in insertion order; [] when there are none.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := storage.GetStudents(r.Context())
		if err != nil {
			writeStoreError(w, "error getting students", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/Students/{id}
//
// Replaces ALL fields of the student: a field missing from the body is
// cleared, including imageName. The path id wins over any id in the body.
// Unlike create, the body is not validated, so {"name":"Carl"} blanks the
// email. imageName may only repeat the stored value or be null.
//
// 200 with the stored student, 404 when no student has that id, 400 when
// imageName is anything other than the stored value or null.
// ─────────────────────────────────────────────────────────────────────────────
func Update(students *service.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int64("id", id))

		student, ok := decodeBody(w, r)
		if !ok {
			return
		}

		updated, err := students.Update(r.Context(), id, student)
		if err != nil {
			writeStoreError(w, "error updating student", err)
			return
		}

		slog.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/Students/{id}
//
// 200 with the removed student, 404 when no student has that id.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(students *service.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int64("id", id))

		removed, err := students.Delete(r.Context(), id)
		if err != nil {
			writeStoreError(w, "error deleting student", err)
			return
		}

		slog.Info("student deleted", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, removed)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return id, true
}

func decodeStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	student, ok := decodeBody(w, r)
	if !ok || !validStudent(w, student) {
		return types.Student{}, false
	}
	return student, true
}

func decodeBody(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return types.Student{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Student{}, false
	}

	return student, true
}

func validStudent(w http.ResponseWriter, student types.Student) bool {
	if err := validate.Struct(student); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return false
	}
	return true
}

// readImage returns nil when the form carries no "image" part.
func readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image part: %w", err)
	}
	defer file.Close()

	return io.ReadAll(file)
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.WriteJSON(w, http.StatusRequestEntityTooLarge,
			response.GeneralError(fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)))
		return
	}
	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
}

// writeStoreError maps storage.ErrNotFound to 404, rejected image names to
// 400 and anything else, image read/write failures included, to 500.
func writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
		return
	case errors.Is(err, images.ErrInvalidName), errors.Is(err, service.ErrForeignImage):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return
	}

	slog.Error(msg, slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
