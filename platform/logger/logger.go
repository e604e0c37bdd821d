// Package logger is the structured logger every component receives. It wraps
// slog and adds the funnel's correlation ids from the request context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey holds the X-Request-ID of the HTTP request.
	RequestIDKey contextKey = "request_id"
	// UserIDKey holds the dashboard user from the bearer token.
	UserIDKey contextKey = "user_id"
	// EventIDKey holds the gateway event being reconciled.
	EventIDKey contextKey = "event_id"
)

var contextKeys = []contextKey{RequestIDKey, UserIDKey, EventIDKey}

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// New logs text at debug level in development and JSON at info elsewhere.
func New(env string) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// WithContext attaches whichever correlation ids ctx carries.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// HTTPRequest is the access log line.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// UpstreamError logs a failed call to the CRM, the pricing engine or the gateway.
func (l *Logger) UpstreamError(upstream, operation string, err error) {
	l.Error("upstream_error",
		slog.String("upstream", upstream),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// SideEffectFailed logs a best-effort step that did not fail the request.
func (l *Logger) SideEffectFailed(step string, err error, args ...any) {
	attrs := append([]any{slog.String("step", step), slog.String("error", err.Error())}, args...)
	l.Warn("side_effect_failed", attrs...)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
