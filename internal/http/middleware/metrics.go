package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request latency per method, route pattern and status.
type Metrics struct {
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "students_api",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time taken to serve HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	reg.MustRegister(m.duration)

	return m
}

// Middleware labels requests with the matched ServeMux pattern rather than
// the raw URL so ids do not explode the label set. The request does not
// carry the matched pattern, so it is looked up again on mux.
func (m *Metrics) Middleware(mux *http.ServeMux) func(inner http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			inner.ServeHTTP(sw, r)

			_, pattern := mux.Handler(r)
			if pattern == "" {
				pattern = "unmatched"
			}

			m.duration.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.code())).
				Observe(time.Since(start).Seconds())
		})
	}
}
