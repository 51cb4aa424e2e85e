// Package alert manages monitoring notifications shown to users: new
// exposures, re-listings, confirmed removals.
package alert

import (
	"errors"
	"time"
)

// ErrAlertNotFound is returned when an alert does not exist.
var ErrAlertNotFound = errors.New("alert not found")

// Alert types.
const (
	TypeNewExposure      = "new_exposure"
	TypeReListed         = "re_listed"
	TypeRemovalConfirmed = "removal_confirmed"
	TypeBreachDetected   = "breach_detected"
	TypeNewAccount       = "new_account"
)

// Severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a notification delivered to a user.
type Alert struct {
	ID     string
	UserID string

	Type     string
	Severity string

	Title       string
	Description string
	SourceURL   string

	IsRead      bool
	IsDismissed bool

	CreatedAt time.Time
	ReadAt    *time.Time
}

// Stats aggregates a user's alerts. Critical and High count unread
// alerts only.
type Stats struct {
	Total    int
	Unread   int
	Critical int
	High     int
}
