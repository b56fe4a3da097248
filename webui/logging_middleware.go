package webui

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"caricature_studio/logging"
)

// RequestRecorder receives one observation per HTTP request.
// metrics.Collector implements it.
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// LoggingMiddleware logs every request with method, route, status and
// duration, and feeds the same values to a RequestRecorder.
type LoggingMiddleware struct {
	logger    *logging.Logger
	recorder  RequestRecorder
	skipPaths map[string]bool
}

// LoggingMiddlewareConfig holds configuration for the LoggingMiddleware.
type LoggingMiddlewareConfig struct {
	Logger   *logging.Logger
	Recorder RequestRecorder

	// SkipPaths are not logged. They are still recorded.
	SkipPaths []string
}

func NewLoggingMiddleware(config LoggingMiddlewareConfig) *LoggingMiddleware {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}
	return &LoggingMiddleware{
		logger:    config.Logger,
		recorder:  config.Recorder,
		skipPaths: skipPaths,
	}
}

// Handler wraps next with request logging.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		route := routeLabel(r)
		if m.recorder != nil {
			m.recorder.RecordHTTPRequest(r.Method, route, wrapped.statusCode, duration)
		}
		if m.skipPaths[r.URL.Path] {
			return
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			logging.Duration(duration),
			zap.String("remote_addr", ClientIP(r)),
			zap.Int64("bytes", wrapped.bytesWritten),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			m.logger.Warn("http request", fields...)
			return
		}
		m.logger.Info("http request", fields...)
	})
}

// routeLabel returns the matched ServeMux pattern without its method, so
// /api/history/{id} is one label no matter the id.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// responseWriterWrapper captures the status code and response size.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *responseWriterWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
