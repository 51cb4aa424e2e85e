package alert

import "context"

// Repository defines the interface for alert storage.
type Repository interface {
	// Create inserts a new alert.
	Create(ctx context.Context, alert *Alert) error

	// FindByID returns the user's alert with the given ID, or
	// ErrAlertNotFound. Alerts are always scoped to their owner.
	FindByID(ctx context.Context, userID, id string) (*Alert, error)

	// ListByUser returns non-dismissed alerts newest first, limited.
	// When unreadOnly is set, read alerts are excluded.
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Alert, error)

	// Update persists changes to an existing alert.
	Update(ctx context.Context, alert *Alert) error

	// MarkAllRead marks the user's unread alerts as read and returns
	// how many were updated.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// StatsByUser aggregates the user's alerts.
	StatsByUser(ctx context.Context, userID string) (*Stats, error)
}
