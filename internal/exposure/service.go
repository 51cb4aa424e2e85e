package exposure

import (
	"context"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
)

// Service provides read access to a user's exposures.
type Service struct {
	repo Repository
}

// NewService creates a new exposure service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the user's exposures newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.ExposureView, error) {
	exposures, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.ExposureView, 0, len(exposures))
	for _, e := range exposures {
		views = append(views, ToView(e))
	}
	return views, nil
}

// Stats returns the user's dashboard aggregates.
func (s *Service) Stats(ctx context.Context, userID string) (*models.DashboardStats, error) {
	stats, err := s.repo.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalExposures:    stats.TotalExposures,
		PendingRemovals:   stats.PendingRemovals,
		CompletedRemovals: stats.CompletedRemovals,
		BrokersScanned:    stats.BrokersScanned,
	}, nil
}

// ToView converts an exposure to its API representation.
func ToView(e *Exposure) models.ExposureView {
	view := models.ExposureView{
		ID:              e.ID,
		BrokerID:        e.BrokerID,
		BrokerName:      e.BrokerName,
		Status:          models.ExposureStatus(e.Status),
		ProfileURL:      e.ProfileURL,
		DataFound:       e.DataFound,
		FirstDetectedAt: models.Timestamp(e.FirstDetectedAt),
		LastCheckedAt:   models.Timestamp(e.LastCheckedAt),
	}
	if e.RemovedAt != nil {
		removed := models.Timestamp(*e.RemovedAt)
		view.RemovedAt = &removed
	}
	return view
}
