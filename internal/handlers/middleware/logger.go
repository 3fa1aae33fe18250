package middleware

import (
	"net/http"
	"strings"
	"time"
)

type logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type logWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (w *logWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *logWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Log every request. Server errors are logged at error level
// Query string is not logged, reset token in the path is masked
func LoggerMiddleware(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &logWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lw, r)

			log := l.Info
			if lw.status >= http.StatusInternalServerError {
				log = l.Error
			}

			log(
				"got HTTP request",
				"method", r.Method,
				"uri", redactURI(r.URL.Path),
				"duration", time.Since(start),
				"status", lw.status,
				"size", lw.size,
			)
		})
	}
}

const resetPasswordPrefix = "/auth/reset-password/"

// Hide secrets that travel in the path
func redactURI(path string) string {
	if strings.HasPrefix(path, resetPasswordPrefix) {
		return resetPasswordPrefix + "***"
	}
	return path
}
