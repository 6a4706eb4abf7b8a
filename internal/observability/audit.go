package observability

import (
	"context"
	"log/slog"
)

// AuditLogger emits the domain events recorded around every blog and account action.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger returns an AuditLogger writing through logger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// Info records an informational event. A zero userID is logged as an anonymous actor.
func (a *AuditLogger) Info(ctx context.Context, msg, action string, userID uint, attrs ...any) {
	a.log(ctx, slog.LevelInfo, msg, action, userID, attrs...)
}

// Warn records a warning event, typically a denied action.
func (a *AuditLogger) Warn(ctx context.Context, msg, action string, userID uint, attrs ...any) {
	a.log(ctx, slog.LevelWarn, msg, action, userID, attrs...)
}

func (a *AuditLogger) log(ctx context.Context, level slog.Level, msg, action string, userID uint, attrs ...any) {
	var user any
	if userID != 0 {
		user = userID
	}
	fields := append([]any{
		slog.String("action", action),
		slog.Any("user", user),
	}, attrs...)

	a.logger.Log(ctx, level, msg, fields...)
	AuditEvents.WithLabelValues(action, level.String()).Inc()
}
