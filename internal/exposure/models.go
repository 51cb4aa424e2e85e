// Package exposure tracks where a user's personal data has been found:
// one record per user per source site, with the lifecycle of getting
// that listing removed.
package exposure

import (
	"errors"
	"time"
)

// ErrExposureNotFound is returned when an exposure does not exist.
var ErrExposureNotFound = errors.New("exposure not found")

// Exposure statuses.
const (
	StatusFound          = "found"
	StatusPendingRemoval = "pending_removal"
	StatusRemoved        = "removed"
	StatusReListed       = "re_listed"
)

// Source types for exposures not tied to a catalog broker.
const (
	SourceBroker         = "broker"
	SourceAdditionalSite = "additional_site"
	SourceSocialMedia    = "social_media"
	SourceSearchEngine   = "search_engine"
)

// Exposure is a record of a user's data found on a site. BrokerID is
// empty for deep-scan findings outside the broker catalog; those carry
// SourceName and SourceType instead.
type Exposure struct {
	ID       string
	UserID   string
	BrokerID string

	SourceName string
	SourceType string

	Status string

	ProfileURL    string
	DataFound     map[string]bool
	ScreenshotURL string

	FirstDetectedAt time.Time
	LastCheckedAt   time.Time
	RemovedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// BrokerName is populated on reads that join the broker catalog.
	BrokerName string
}

// Stats aggregates a user's exposures for the dashboard.
type Stats struct {
	TotalExposures    int
	PendingRemovals   int
	CompletedRemovals int
	BrokersScanned    int
}
