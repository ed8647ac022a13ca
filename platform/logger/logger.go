// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
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
	// AccountIDKey is the context key for the tenant account ID
	AccountIDKey contextKey = "account_id"
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
// Supports request_id and account_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if accountID, ok := ctx.Value(AccountIDKey).(string); ok && accountID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("account_id", accountID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
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

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RecordError logs a per-record failure during a reconciliation batch.
// Every error must be attributable to a single entity id.
func (l *Logger) RecordError(entity, recordID string, err error) {
	l.Error("record_error",
		slog.String("entity", entity),
		slog.String("record_id", recordID),
		slog.String("error", err.Error()),
	)
}

// AssignmentEvent logs a lead-to-vendor routing decision.
func (l *Logger) AssignmentEvent(event, leadID, vendorID, reason string) {
	l.Info("assignment_event",
		slog.String("event", event),
		slog.String("lead_id", leadID),
		slog.String("vendor_id", vendorID),
		slog.String("reason", reason),
	)
}
