package logging

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// statusRecorderPool avoids one wrapper allocation per request
var statusRecorderPool = sync.Pool{
	New: func() any {
		return &statusRecorder{statusCode: http.StatusOK}
	},
}

// LoggingMiddleware logs every request except health and metrics probes
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			rec := statusRecorderPool.Get().(*statusRecorder)
			rec.ResponseWriter = w
			rec.statusCode = http.StatusOK
			rec.bytesWritten = 0

			next.ServeHTTP(rec, r)

			requestID := middleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = "unknown"
			}

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			attrs = append(attrs,
				"remote_addr", r.RemoteAddr,
				"status_code", rec.statusCode,
				"bytes_written", rec.bytesWritten,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			switch {
			case rec.statusCode >= 500:
				logger.ErrorContext(r.Context(), "HTTP request", attrs...)
			case rec.statusCode >= 400:
				logger.WarnContext(r.Context(), "HTTP request", attrs...)
			default:
				logger.InfoContext(r.Context(), "HTTP request", attrs...)
			}

			rec.ResponseWriter = nil
			statusRecorderPool.Put(rec)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += n
	return n, err
}
