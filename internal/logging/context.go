package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIDKey contextKey = iota
)

// GenerateRequestID creates a new time-ordered request ID.
func GenerateRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// NewRequestContext derives a context carrying a generated request ID.
// Contexts that already carry one are returned unchanged.
func NewRequestContext(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	if RequestIDFromContext(parent) != "" {
		return parent
	}
	return WithRequestID(parent, GenerateRequestID())
}

// RequestIDFromContext extracts the request ID from the context.
// Returns empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a logger with the request ID from context.
// If no request ID is in the context, returns the default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := Logger()
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With(KeyRequestID, requestID)
	}
	return logger
}

// ContextLogger is a helper for logging with context.
type ContextLogger struct {
	ctx    context.Context
	logger *slog.Logger
}

// FromContext creates a ContextLogger from a context.
func FromContext(ctx context.Context) *ContextLogger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ContextLogger{
		ctx:    ctx,
		logger: LoggerFromContext(ctx),
	}
}

// With returns a new ContextLogger with additional attributes.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		ctx:    cl.ctx,
		logger: cl.logger.With(prepare(args)...),
	}
}

// Info logs at INFO level.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, prepare(args)...)
}

// Debug logs at DEBUG level.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, prepare(args)...)
}

// Warn logs at WARN level.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, prepare(args)...)
}

// Error logs at ERROR level.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, prepare(args)...)
}

// RequestID returns the request ID from the logger's context.
func (cl *ContextLogger) RequestID() string {
	return RequestIDFromContext(cl.ctx)
}
