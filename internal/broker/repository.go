package broker

import "context"

// Repository defines the interface for broker catalog storage.
type Repository interface {
	// Create inserts a broker into the catalog.
	Create(ctx context.Context, broker *Broker) error

	// FindByID returns the broker with the given ID, or ErrBrokerNotFound.
	FindByID(ctx context.Context, id string) (*Broker, error)

	// ListActive returns active brokers ordered by name, paginated.
	ListActive(ctx context.Context, offset, limit int) ([]*Broker, error)

	// AllActive returns every active broker ordered by name.
	AllActive(ctx context.Context) ([]*Broker, error)

	// Update persists changes to an existing broker.
	Update(ctx context.Context, broker *Broker) error
}
