package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	AccountID     string
	Identifier    string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// AuditLogger provides structured audit logging alongside the durable alert
// store. Failures in either channel never abort authentication.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.Identifier != "" {
		attrs = append(attrs, slog.String("identifier", SanitizedIdentifier(event.Identifier)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogLockout logs an account lock transition
func (al *AuditLogger) LogLockout(accountID, identifier, ipAddress string, until time.Time) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "lockout"),
		slog.String("event_type", "account_locked"),
		slog.String("account_id", accountID),
		slog.String("identifier", SanitizedIdentifier(identifier)),
		slog.String("ip_address", ipAddress),
		slog.String("locked_until", until.UTC().Format(time.RFC3339)),
	)
}

// LogRecovery logs OTP recovery events (generation, verification, unlock)
func (al *AuditLogger) LogRecovery(eventType, address string, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit",
		slog.String("audit_type", "recovery"),
		slog.String("event_type", eventType),
		slog.String("address", SanitizedIdentifier(address)),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
