package removal

import (
	"context"
	"sort"
	"sync"

	"github.com/privacyeraser/privacyeraser/internal/exposure"
)

// InMemoryRepository is an in-memory implementation of Repository for
// testing and local development. The single-active-request invariant is
// enforced under the repository mutex, matching the partial unique
// index the PostgreSQL implementation relies on. Coupled exposure
// transitions are rolled back under the same mutex when they fail,
// mirroring the PostgreSQL transaction.
type InMemoryRepository struct {
	mu        sync.RWMutex
	requests  map[string]*Request
	exposures exposure.Repository
}

// NewInMemoryRepository creates a new in-memory removal repository
// writing coupled exposure transitions through the given repository.
func NewInMemoryRepository(exposures exposure.Repository) *InMemoryRepository {
	return &InMemoryRepository{
		requests:  make(map[string]*Request),
		exposures: exposures,
	}
}

// Create inserts a new request, rejecting a second active request for
// the same exposure. A non-nil exposure is transitioned in the same
// operation, and the request insert is undone if that transition fails.
func (r *InMemoryRepository) Create(ctx context.Context, request *Request, exp *exposure.Exposure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if request.ExposureID != "" {
		for _, existing := range r.requests {
			if existing.ExposureID == request.ExposureID && existing.Active() {
				return ErrDuplicateActive
			}
		}
	}

	r.requests[request.ID] = copyRequest(request)

	if exp != nil && r.exposures != nil {
		if err := r.exposures.Update(ctx, exp); err != nil {
			delete(r.requests, request.ID)
			return err
		}
	}
	return nil
}

// FindByID retrieves the user's request with the given ID.
func (r *InMemoryRepository) FindByID(_ context.Context, userID, id string) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[id]
	if !ok || request.UserID != userID {
		return nil, ErrRequestNotFound
	}
	return copyRequest(request), nil
}

// ListByUser returns the user's requests newest first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var requests []*Request
	for _, request := range r.requests {
		if request.UserID == userID {
			requests = append(requests, copyRequest(request))
		}
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

// Update persists changes to an existing request.
func (r *InMemoryRepository) Update(_ context.Context, request *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[request.ID]; !ok {
		return ErrRequestNotFound
	}

	r.requests[request.ID] = copyRequest(request)
	return nil
}

// UpdateWithExposure persists a request update and the coupled exposure
// transition together, restoring the previous request state if the
// exposure write fails. A nil exposure degrades to Update.
func (r *InMemoryRepository) UpdateWithExposure(ctx context.Context, request *Request, exp *exposure.Exposure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.requests[request.ID]
	if !ok {
		return ErrRequestNotFound
	}

	r.requests[request.ID] = copyRequest(request)

	if exp != nil && r.exposures != nil {
		if err := r.exposures.Update(ctx, exp); err != nil {
			r.requests[request.ID] = prev
			return err
		}
	}
	return nil
}

// CountActiveByUser counts the user's pending and submitted requests.
func (r *InMemoryRepository) CountActiveByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, request := range r.requests {
		if request.UserID == userID && request.Active() {
			count++
		}
	}
	return count, nil
}

// StatsByUser aggregates the user's requests.
func (r *InMemoryRepository) StatsByUser(_ context.Context, userID string) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{}
	for _, request := range r.requests {
		if request.UserID != userID {
			continue
		}
		stats.Total++
		switch request.Status {
		case StatusPending:
			stats.Pending++
		case StatusSubmitted:
			stats.Submitted++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		}
		if request.RequiresUserAction {
			stats.RequiresAction++
		}
	}
	return stats, nil
}

func copyRequest(request *Request) *Request {
	req := *request
	if request.SubmittedAt != nil {
		t := *request.SubmittedAt
		req.SubmittedAt = &t
	}
	if request.ExpectedCompletion != nil {
		t := *request.ExpectedCompletion
		req.ExpectedCompletion = &t
	}
	if request.CompletedAt != nil {
		t := *request.CompletedAt
		req.CompletedAt = &t
	}
	return &req
}

var _ Repository = (*InMemoryRepository)(nil)
