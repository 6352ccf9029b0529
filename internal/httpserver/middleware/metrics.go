package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/davidbz/howl/internal/observability"
)

// statusRecorder captures the response status while passing Flush through,
// so SSE responses keep working behind the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Metrics records request counts and durations.
func Metrics(metrics *observability.Metrics) Middleware {
	if metrics == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			path := r.URL.Path
			metrics.RequestsTotal.WithLabelValues(path, strconv.Itoa(recorder.status)).Inc()
			metrics.RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		})
	}
}
