package alert

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository for
// testing and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
	}
}

// Create inserts a new alert.
func (r *InMemoryRepository) Create(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

// FindByID retrieves the user's alert with the given ID.
func (r *InMemoryRepository) FindByID(_ context.Context, userID, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok || alert.UserID != userID {
		return nil, ErrAlertNotFound
	}
	return copyAlert(alert), nil
}

// ListByUser returns non-dismissed alerts newest first, limited.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var alerts []*Alert
	for _, alert := range r.alerts {
		if alert.UserID != userID || alert.IsDismissed {
			continue
		}
		if unreadOnly && alert.IsRead {
			continue
		}
		alerts = append(alerts, copyAlert(alert))
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	if limit > 0 && limit < len(alerts) {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

// Update persists changes to an existing alert.
func (r *InMemoryRepository) Update(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return ErrAlertNotFound
	}

	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

// MarkAllRead marks the user's unread alerts as read.
func (r *InMemoryRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, alert := range r.alerts {
		if alert.UserID == userID && !alert.IsRead {
			alert.IsRead = true
			alert.ReadAt = &now
			count++
		}
	}
	return count, nil
}

// StatsByUser aggregates the user's alerts.
func (r *InMemoryRepository) StatsByUser(_ context.Context, userID string) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{}
	for _, alert := range r.alerts {
		if alert.UserID != userID {
			continue
		}
		stats.Total++
		if alert.IsRead {
			continue
		}
		stats.Unread++
		switch alert.Severity {
		case SeverityCritical:
			stats.Critical++
		case SeverityHigh:
			stats.High++
		}
	}
	return stats, nil
}

func copyAlert(alert *Alert) *Alert {
	a := *alert
	if alert.ReadAt != nil {
		read := *alert.ReadAt
		a.ReadAt = &read
	}
	return &a
}

var _ Repository = (*InMemoryRepository)(nil)
