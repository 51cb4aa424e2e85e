package alert

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
)

// DefaultListLimit caps alert listings.
const DefaultListLimit = 50

// Service provides alert operations.
type Service struct {
	repo Repository
}

// NewService creates a new alert service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify creates a new alert for the user.
func (s *Service) Notify(ctx context.Context, userID, alertType, severity, title, description, sourceURL string) error {
	return s.repo.Create(ctx, &Alert{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        alertType,
		Severity:    severity,
		Title:       title,
		Description: description,
		SourceURL:   sourceURL,
		CreatedAt:   time.Now(),
	})
}

// List returns the user's alerts newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.AlertView, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	alerts, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	views := make([]models.AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, models.AlertView{
			ID:          a.ID,
			AlertType:   models.AlertType(a.Type),
			Severity:    models.AlertSeverity(a.Severity),
			Title:       a.Title,
			Description: a.Description,
			SourceURL:   a.SourceURL,
			IsRead:      a.IsRead,
			CreatedAt:   models.Timestamp(a.CreatedAt),
		})
	}
	return views, nil
}

// Stats returns the user's alert aggregates.
func (s *Service) Stats(ctx context.Context, userID string) (*models.AlertStats, error) {
	stats, err := s.repo.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.AlertStats{
		Total:    stats.Total,
		Unread:   stats.Unread,
		Critical: stats.Critical,
		High:     stats.High,
	}, nil
}

// MarkRead marks a single alert as read. Marking an already-read alert
// is a no-op.
func (s *Service) MarkRead(ctx context.Context, userID, alertID string) error {
	alert, err := s.repo.FindByID(ctx, userID, alertID)
	if err != nil {
		return err
	}

	if alert.IsRead {
		return nil
	}

	now := time.Now()
	alert.IsRead = true
	alert.ReadAt = &now
	return s.repo.Update(ctx, alert)
}

// MarkAllRead marks every unread alert as read and returns the count.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Dismiss hides an alert from future listings.
func (s *Service) Dismiss(ctx context.Context, userID, alertID string) error {
	alert, err := s.repo.FindByID(ctx, userID, alertID)
	if err != nil {
		return err
	}

	alert.IsDismissed = true
	return s.repo.Update(ctx, alert)
}
