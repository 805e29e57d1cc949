package models

import "time"

// Security alert types.
const (
	AlertUnusualLogin    = "unusual_login"
	AlertAccountLocked   = "account_locked"
	AlertAutomatedAttack = "automated_attack_suspected"
)

// Security alert review statuses. Status transitions happen through a human
// review action; this subsystem only ever creates alerts as "active".
const (
	AlertStatusActive        = "active"
	AlertStatusResolved      = "resolved"
	AlertStatusFalsePositive = "false_positive"
)

// AlertDetails holds structured context for an alert, persisted as JSONB.
type AlertDetails map[string]any

// SecurityAlert is a durable record of a noteworthy security event. Alerts are
// advisory: recording one never blocks the request it was derived from.
type SecurityAlert struct {
	ID        string       `json:"id"`
	AccountID *string      `json:"account_id,omitempty"`
	AlertType string       `json:"alert_type"`
	Details   AlertDetails `json:"details"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
