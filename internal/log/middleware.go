package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the request-scoped logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), logger)))
		})
	}
}

func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request-scoped logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger emits the standard request and domain log lines.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) emit(ctx context.Context, level slog.Level, msg string, f LogFields) {
	l := sl.logger
	if c, ok := f[FieldComponent].(string); ok && c != "" {
		l = l.WithComponent(c)
	}
	l.Log(ctx, level, msg, f.ToSlice()...)
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	fields := NewFields().
		WithRequestID(requestID).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.emit(ctx, slog.LevelInfo, "HTTP request started", fields)
}

// LogHTTPEnd logs completion at a level derived from the status code.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, statusCode int, durationMs int64, durationHuman, clientIP string) {
	fields := NewFields().
		WithRequestID(requestID).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, durationHuman, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.emit(ctx, StatusLevel(statusCode), "HTTP request completed", fields)
}

// LogQuoteSaved logs a quote write with its number and totals.
func (sl *StructuredLogger) LogQuoteSaved(ctx context.Context, op, id, number, client, status string, grandTotal float64, items int) {
	fields := NewFields().
		WithQuote(id, number, client, status, grandTotal, items).
		WithOperation(op).
		WithComponent(ComponentQuote)
	sl.emit(ctx, slog.LevelInfo, "Quote saved", fields)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.emit(ctx, slog.LevelError, msg, fields)
}

// StatusLevel maps 4xx to warn, 5xx to error and everything else to info.
func StatusLevel(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
