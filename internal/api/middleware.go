package api

import (
	"context"
	"net/http"
	"time"

	"github.com/crewboard/crewboard-api/internal/platform/logger"
)

// TraceMiddleware assigns each request a trace ID, binds a request-scoped
// logger into the context, and logs request completion with duration. Apply
// it first so every downstream handler and service log line carries the
// trace ID.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := newTraceID()
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)

		log := logger.FromContext(ctx).With("trace_id", traceID)
		ctx = logger.WithLogger(ctx, log)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))

		log.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}

// statusRecorder captures the response status for the completion log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
