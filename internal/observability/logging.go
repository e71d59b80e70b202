// Package observability carries request-scoped logging context through the publish pipeline.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	PublishID string
	Target    string
	Stage     string
	RequestID string
	Subject   string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithPublishID adds a publish ID to the context.
func WithPublishID(ctx context.Context, publishID string) context.Context {
	lc := extractLogContext(ctx)
	lc.PublishID = publishID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithTarget adds a target ID to the context.
func WithTarget(ctx context.Context, target string) context.Context {
	lc := extractLogContext(ctx)
	lc.Target = target
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRequestID adds an HTTP request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSubject adds the authenticated editor to the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	lc := extractLogContext(ctx)
	lc.Subject = subject
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns slog attributes from the context's LogContext.
func Attrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := make([]slog.Attr, 0, 5)

	if lc.PublishID != "" {
		attrs = append(attrs, logfields.PublishID(lc.PublishID))
	}
	if lc.Target != "" {
		attrs = append(attrs, logfields.Target(lc.Target))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	if lc.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", lc.RequestID))
	}
	if lc.Subject != "" {
		attrs = append(attrs, slog.String("subject", lc.Subject))
	}
	return attrs
}

func logWithContext(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	all := append(Attrs(ctx), attrs...)
	slog.LogAttrs(ctx, level, msg, all...)
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelInfo, msg, attrs)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelWarn, msg, attrs)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelError, msg, attrs)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelDebug, msg, attrs)
}
