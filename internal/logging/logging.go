// Package logging provides the request-scoped logger used by the HTTP layer,
// with trace ID propagation through context.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// TraceIDKey carries the request trace ID through context.
	TraceIDKey contextKey = "trace_id"

	// ActorKey carries the acting identity address through context.
	ActorKey contextKey = "actor"
)

// Logger emits structured request and component logs.
type Logger struct {
	log zerolog.Logger
}

// New constructs a logger for the named service. Format is "json" or
// "console"; level is a zerolog level name.
func New(service, level, format string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	base := zerolog.New(os.Stdout)
	if strings.ToLower(format) == "console" {
		base = zerolog.New(out)
	}

	log := base.Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()
	return &Logger{log: log}
}

// NewTraceID generates a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores the trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID extracts the trace ID, or "" when absent.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithActor stores the acting identity address in the context.
func WithActor(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, ActorKey, address)
}

// GetActor extracts the acting identity address, or "" when absent.
func GetActor(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey).(string); ok {
		return v
	}
	return ""
}

// LogRequest records one handled HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	evt := l.log.Info()
	if status >= 500 {
		evt = l.log.Error()
	} else if status >= 400 {
		evt = l.log.Warn()
	}

	evt.Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration)
	if traceID := GetTraceID(ctx); traceID != "" {
		evt.Str("trace_id", traceID)
	}
	if actor := GetActor(ctx); actor != "" {
		evt.Str("actor", actor)
	}
	evt.Msg("request completed")
}

// Warn logs a component-level warning with optional structured fields.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn().Fields(fields).Msg(msg)
}

// Info logs a component-level message.
func (l *Logger) Info(msg string) {
	l.log.Info().Msg(msg)
}

// Error logs a component-level error.
func (l *Logger) Error(msg string, err error) {
	l.log.Error().Err(err).Msg(msg)
}
