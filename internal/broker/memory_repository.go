package broker

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for
// testing and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	brokers map[string]*Broker
}

// NewInMemoryRepository creates a new in-memory broker repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		brokers: make(map[string]*Broker),
	}
}

// Create inserts a broker into the catalog.
func (r *InMemoryRepository) Create(_ context.Context, broker *Broker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := *broker
	r.brokers[broker.ID] = &b
	return nil
}

// FindByID retrieves a broker by ID.
func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*Broker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	broker, ok := r.brokers[id]
	if !ok {
		return nil, ErrBrokerNotFound
	}

	b := *broker
	return &b, nil
}

// ListActive returns active brokers ordered by name, paginated.
func (r *InMemoryRepository) ListActive(_ context.Context, offset, limit int) ([]*Broker, error) {
	all := r.sortedActive()

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// AllActive returns every active broker ordered by name.
func (r *InMemoryRepository) AllActive(_ context.Context) ([]*Broker, error) {
	return r.sortedActive(), nil
}

// Update persists changes to an existing broker.
func (r *InMemoryRepository) Update(_ context.Context, broker *Broker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.brokers[broker.ID]; !ok {
		return ErrBrokerNotFound
	}

	b := *broker
	r.brokers[broker.ID] = &b
	return nil
}

func (r *InMemoryRepository) sortedActive() []*Broker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var brokers []*Broker
	for _, broker := range r.brokers {
		if !broker.IsActive {
			continue
		}
		b := *broker
		brokers = append(brokers, &b)
	}

	sort.Slice(brokers, func(i, j int) bool {
		return brokers[i].Name < brokers[j].Name
	})
	return brokers
}

var _ Repository = (*InMemoryRepository)(nil)
