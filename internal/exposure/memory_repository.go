package exposure

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository for
// testing and local development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	exposures map[string]*Exposure
}

// NewInMemoryRepository creates a new in-memory exposure repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		exposures: make(map[string]*Exposure),
	}
}

// Create inserts a new exposure.
func (r *InMemoryRepository) Create(_ context.Context, exposure *Exposure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exposures[exposure.ID] = copyExposure(exposure)
	return nil
}

// FindByID retrieves an exposure by ID.
func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*Exposure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exposure, ok := r.exposures[id]
	if !ok {
		return nil, ErrExposureNotFound
	}
	return copyExposure(exposure), nil
}

// FindByUserAndBroker retrieves the user's exposure for a catalog broker.
func (r *InMemoryRepository) FindByUserAndBroker(_ context.Context, userID, brokerID string) (*Exposure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, exposure := range r.exposures {
		if exposure.UserID == userID && exposure.BrokerID == brokerID {
			return copyExposure(exposure), nil
		}
	}
	return nil, ErrExposureNotFound
}

// ListByUser returns the user's exposures newest first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]*Exposure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exposures []*Exposure
	for _, exposure := range r.exposures {
		if exposure.UserID == userID {
			exposures = append(exposures, copyExposure(exposure))
		}
	}

	sort.Slice(exposures, func(i, j int) bool {
		return exposures[i].FirstDetectedAt.After(exposures[j].FirstDetectedAt)
	})
	return exposures, nil
}

// Update persists changes to an existing exposure.
func (r *InMemoryRepository) Update(_ context.Context, exposure *Exposure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exposures[exposure.ID]; !ok {
		return ErrExposureNotFound
	}

	r.exposures[exposure.ID] = copyExposure(exposure)
	return nil
}

// ListRemovedBefore returns removed exposures whose last check predates
// the cutoff, oldest check first.
func (r *InMemoryRepository) ListRemovedBefore(_ context.Context, cutoff time.Time, limit int) ([]*Exposure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exposures []*Exposure
	for _, exposure := range r.exposures {
		if exposure.Status == StatusRemoved && exposure.LastCheckedAt.Before(cutoff) {
			exposures = append(exposures, copyExposure(exposure))
		}
	}

	sort.Slice(exposures, func(i, j int) bool {
		return exposures[i].LastCheckedAt.Before(exposures[j].LastCheckedAt)
	})
	if limit > 0 && len(exposures) > limit {
		exposures = exposures[:limit]
	}
	return exposures, nil
}

// StatsByUser aggregates the user's exposures for the dashboard.
func (r *InMemoryRepository) StatsByUser(_ context.Context, userID string) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{}
	brokers := make(map[string]struct{})

	for _, exposure := range r.exposures {
		if exposure.UserID != userID {
			continue
		}
		switch exposure.Status {
		case StatusFound:
			stats.TotalExposures++
		case StatusPendingRemoval:
			stats.PendingRemovals++
		case StatusRemoved:
			stats.CompletedRemovals++
		}
		if exposure.BrokerID != "" {
			brokers[exposure.BrokerID] = struct{}{}
		}
	}

	stats.BrokersScanned = len(brokers)
	return stats, nil
}

func copyExposure(exposure *Exposure) *Exposure {
	e := *exposure
	if exposure.DataFound != nil {
		e.DataFound = make(map[string]bool, len(exposure.DataFound))
		for k, v := range exposure.DataFound {
			e.DataFound[k] = v
		}
	}
	if exposure.RemovedAt != nil {
		removed := *exposure.RemovedAt
		e.RemovedAt = &removed
	}
	return &e
}

var _ Repository = (*InMemoryRepository)(nil)
