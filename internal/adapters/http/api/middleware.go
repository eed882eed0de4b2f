package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/metrics"
)

// Instrument wraps a route handler: it records request metrics under
// endpoint, logs failures and turns a handler panic into a 500.
func Instrument(endpoint string, log logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				log.Error(r.Context(), "handler panic",
					logger.String("endpoint", endpoint),
					logger.Any("panic", p),
				)
				metrics.RecordErrorByComponent("http", "panic")
				if !rec.wrote {
					writeError(rec, http.StatusInternalServerError, "internal", nil)
				}
			}

			code := strconv.Itoa(rec.status)
			metrics.RecordHTTPRequest(endpoint, r.Method, code)
			metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Microseconds())/1000)

			if rec.status >= http.StatusBadRequest {
				metrics.RecordErrorByComponent("http", errorKind(rec.status))
			}
			if rec.status >= http.StatusInternalServerError {
				log.Warn(r.Context(), "request failed",
					logger.String("endpoint", endpoint),
					logger.String("method", r.Method),
					logger.Int("status", rec.status),
				)
			}
		}()

		next.ServeHTTP(rec, r)
	}
}

// errorKind buckets a failing status code for the errors counter.
func errorKind(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusUnprocessableEntity:
		return "unprocessable"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wrote {
		return
	}
	r.status, r.wrote = code, true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}
