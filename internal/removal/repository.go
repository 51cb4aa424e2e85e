package removal

import (
	"context"

	"github.com/privacyeraser/privacyeraser/internal/exposure"
)

// Repository defines the interface for removal request storage. The
// workflow's request writes and their coupled exposure transitions are
// committed together, so a storage failure can never leave a request
// without its exposure state (or the reverse).
type Repository interface {
	// Create atomically inserts a new request and, when exp is non-nil,
	// persists the exposure's transition in the same transaction. It
	// must enforce at most one active request per exposure as a single
	// atomic check-and-insert, returning ErrDuplicateActive on
	// violation.
	Create(ctx context.Context, request *Request, exp *exposure.Exposure) error

	// FindByID returns the user's request with the given ID, or
	// ErrRequestNotFound. Requests are always scoped to their owner.
	FindByID(ctx context.Context, userID, id string) (*Request, error)

	// ListByUser returns the user's requests newest first, with broker
	// and exposure fields populated.
	ListByUser(ctx context.Context, userID string) ([]*Request, error)

	// Update persists changes to an existing request.
	Update(ctx context.Context, request *Request) error

	// UpdateWithExposure atomically persists a request update together
	// with its exposure transition. A nil exposure degrades to Update.
	UpdateWithExposure(ctx context.Context, request *Request, exp *exposure.Exposure) error

	// CountActiveByUser returns how many pending or submitted requests
	// the user has.
	CountActiveByUser(ctx context.Context, userID string) (int, error)

	// StatsByUser aggregates the user's requests.
	StatsByUser(ctx context.Context, userID string) (*Stats, error)
}
