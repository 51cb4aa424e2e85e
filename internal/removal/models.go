// Package removal implements the opt-out workflow: creating removal
// requests against brokers where a user's data was found, and tracking
// them from pending through submitted to completed.
package removal

import (
	"errors"
	"time"
)

// Predefined workflow errors.
var (
	ErrRequestNotFound   = errors.New("removal request not found")
	ErrDuplicateActive   = errors.New("a removal request is already in progress for this exposure")
	ErrInvalidState      = errors.New("request cannot transition from its current state")
	ErrPlanLimit         = errors.New("active request limit reached for plan")
	ErrProfileIncomplete = errors.New("profile must include first and last name")
)

// Request statuses. Pending and submitted are active; completed and
// failed are terminal.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Request types.
const (
	TypeOptOut     = "opt_out"
	TypeGDPRDelete = "gdpr_delete"
	TypeCCPADelete = "ccpa_delete"
)

// Submission methods.
const (
	MethodAutoForm  = "auto_form"
	MethodAutoEmail = "auto_email"
	MethodManual    = "manual"
)

// DefaultProcessingDays applies when the broker has no configured
// processing time.
const DefaultProcessingDays = 14

// Request is an opt-out request against a broker. Opt-out metadata is
// copied from the broker at creation time so the request stays
// self-contained if the catalog entry later changes.
type Request struct {
	ID         string
	UserID     string
	BrokerID   string
	ExposureID string

	RequestType string
	Status      string

	SubmittedAt        *time.Time
	ConfirmationNumber string
	ExpectedCompletion *time.Time
	CompletedAt        *time.Time

	Instructions       string
	RequiresUserAction bool
	MethodUsed         string
	Notes              string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated on reads that join the broker and exposure tables.
	BrokerName string
	OptOutURL  string
	ProfileURL string
}

// Active reports whether the request still counts against the
// duplicate-request and plan-limit checks.
func (r *Request) Active() bool {
	return r.Status == StatusPending || r.Status == StatusSubmitted
}

// Stats aggregates a user's removal requests.
type Stats struct {
	Total          int
	Pending        int
	Submitted      int
	Completed      int
	Failed         int
	RequiresAction int
}
