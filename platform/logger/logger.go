// Package logger provides structured logging infrastructure for the widget
// bridge. This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SessionIDKey is the context key for the widget session ID
	SessionIDKey contextKey = "session_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and session_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok && sessionID != "" {
		newLogger = newLogger.WithSessionID(sessionID)
	}

	return newLogger
}

// WithSessionID returns a logger with the widget session ID attached.
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("session_id", sessionID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HostMutationError logs a mutation the spreadsheet host rejected, with
// enough context (operation, row id, raw payload) to diagnose the host's
// wire shape after the fact.
func (l *Logger) HostMutationError(operation string, rowID int64, rawPayload string, err error) {
	l.Error("host_mutation_error",
		slog.String("operation", operation),
		slog.Int64("row_id", rowID),
		slog.String("raw_payload", rawPayload),
		slog.String("error", err.Error()),
	)
}

// HostPush logs an inbound push from the spreadsheet host.
func (l *Logger) HostPush(kind string, count int) {
	l.Info("host_push",
		slog.String("kind", kind),
		slog.Int("count", count),
	)
}

// RefShape logs a reference value whose wire shape could not be resolved.
// The raw value is recorded so new host shapes can be diagnosed from logs.
func (l *Logger) RefShape(column string, raw any) {
	l.Warn("unresolved_reference_shape",
		slog.String("column", column),
		slog.Any("raw", raw),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
