package broker

import (
	"context"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
)

// DefaultPageSize caps broker catalog pages.
const DefaultPageSize = 100

// Service provides read access to the broker catalog.
type Service struct {
	repo Repository
}

// NewService creates a new broker service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns active brokers ordered by name.
func (s *Service) List(ctx context.Context, offset, limit int) ([]models.BrokerView, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > DefaultPageSize {
		limit = DefaultPageSize
	}

	brokers, err := s.repo.ListActive(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	views := make([]models.BrokerView, 0, len(brokers))
	for _, b := range brokers {
		views = append(views, toBrokerView(b))
	}
	return views, nil
}

// Get returns a single broker by ID.
func (s *Service) Get(ctx context.Context, id string) (*Broker, error) {
	return s.repo.FindByID(ctx, id)
}

func toBrokerView(b *Broker) models.BrokerView {
	return models.BrokerView{
		ID:               b.ID,
		Name:             b.Name,
		Domain:           b.Domain,
		Category:         b.Category,
		SearchURLPattern: b.SearchURLPattern,
		OptOutMethod:     models.OptOutMethod(b.OptOutMethod),
		ProcessingDays:   b.ProcessingDays,
		Difficulty:       b.Difficulty,
		CanAutomate:      b.CanAutomate,
		IsActive:         b.IsActive,
	}
}
