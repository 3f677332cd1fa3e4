// Package router wires the Student handlers to their routes and wraps
// them in the shared middleware chain.
package router

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thedynamicdoers/institute-api/internal/http/handlers/student"
	"github.com/thedynamicdoers/institute-api/internal/http/middleware"
	"github.com/thedynamicdoers/institute-api/internal/service"
	"github.com/thedynamicdoers/institute-api/internal/storage"
)

// Deps are the collaborators handed to every handler factory.
type Deps struct {
	Storage        storage.Storage
	Students       *service.Students
	MaxUploadBytes int64
	Logger         *slog.Logger
	Registry       *prometheus.Registry
}

// New builds the route table:
//
//	GET    /api/Students               → list all students
//	GET    /api/Students/{id}          → get one student
//	GET    /api/Students/{id}/getImage → raw JPEG for a student
//	POST   /api/Students               → create a student
//	POST   /api/Students/withImage     → create a student with an image
//	PUT    /api/Students/{id}          → replace a student
//	DELETE /api/Students/{id}          → delete a student
//	GET    /metrics                    → prometheus scrape endpoint
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/Students", student.GetList(d.Storage))
	mux.HandleFunc("GET /api/Students/{id}", student.GetByID(d.Storage))
	mux.HandleFunc("GET /api/Students/{id}/getImage", student.GetImage(d.Students))
	mux.HandleFunc("POST /api/Students", student.New(d.Storage))
	mux.HandleFunc("POST /api/Students/withImage", student.NewWithImage(d.Students, d.MaxUploadBytes))
	mux.HandleFunc("PUT /api/Students/{id}", student.Update(d.Students))
	mux.HandleFunc("DELETE /api/Students/{id}", student.Delete(d.Students))
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	metrics := middleware.NewMetrics(d.Registry)

	var h http.Handler = mux
	h = metrics.Middleware(mux)(h)
	h = middleware.CORS()(h)
	h = middleware.RequestLog(d.Logger)(h)

	return h
}
