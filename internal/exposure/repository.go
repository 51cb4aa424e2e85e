package exposure

import (
	"context"
	"time"
)

// Repository defines the interface for exposure storage.
type Repository interface {
	// Create inserts a new exposure.
	Create(ctx context.Context, exposure *Exposure) error

	// FindByID returns the exposure with the given ID, or ErrExposureNotFound.
	FindByID(ctx context.Context, id string) (*Exposure, error)

	// FindByUserAndBroker returns the user's exposure for a catalog
	// broker, or ErrExposureNotFound.
	FindByUserAndBroker(ctx context.Context, userID, brokerID string) (*Exposure, error)

	// ListByUser returns the user's exposures newest first, with
	// BrokerName populated.
	ListByUser(ctx context.Context, userID string) ([]*Exposure, error)

	// Update persists changes to an existing exposure.
	Update(ctx context.Context, exposure *Exposure) error

	// ListRemovedBefore returns removed exposures across all users whose
	// last check predates the cutoff, oldest check first. Used by the
	// re-listing monitor.
	ListRemovedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Exposure, error)

	// StatsByUser aggregates the user's exposures for the dashboard.
	StatsByUser(ctx context.Context, userID string) (*Stats, error)
}
