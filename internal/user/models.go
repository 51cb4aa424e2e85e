// Package user provides user account and PII profile management.
package user

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrProfileNotFound = errors.New("profile not found")
)

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string

	// Subscription
	Plan                 string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionEndsAt   *time.Time

	// Status
	IsActive   bool
	IsVerified bool

	// One-time tokens
	VerificationToken   *string
	ResetToken          *string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan tiers.
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// Address is one entry in a profile's address history.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
	Years  string `json:"years,omitempty"`
}

// Profile holds the personal information the user wants scrubbed from
// broker sites. It is the input to broker scans.
type Profile struct {
	ID     string
	UserID string

	FirstName  string
	LastName   string
	MiddleName string
	MaidenName string
	Nicknames  []string

	Emails       []string
	PhoneNumbers []string
	Addresses    []Address

	DateOfBirth *time.Time
	Relatives   []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasName reports whether the profile carries at least a first and last
// name. Scans and removal requests require this minimum.
func (p *Profile) HasName() bool {
	return p != nil && p.FirstName != "" && p.LastName != ""
}
