package removal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// Mailer sends removal confirmation mail. Implemented by the email
// package; nil disables mail.
type Mailer interface {
	SendRemovalConfirmed(ctx context.Context, to, brokerName string) error
}

// Service drives the removal request workflow.
type Service struct {
	requests  Repository
	exposures exposure.Repository
	brokers   broker.Repository
	users     user.Repository
	alerts    *alert.Service
	mailer    Mailer
	logger    zerolog.Logger
}

// ServiceConfig holds configuration for the removal service.
type ServiceConfig struct {
	Requests  Repository
	Exposures exposure.Repository
	Brokers   broker.Repository
	Users     user.Repository
	Alerts    *alert.Service
	Mailer    Mailer
	Logger    zerolog.Logger
}

// NewService creates a new removal service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		requests:  cfg.Requests,
		exposures: cfg.Exposures,
		brokers:   cfg.Brokers,
		users:     cfg.Users,
		alerts:    cfg.Alerts,
		mailer:    cfg.Mailer,
		logger:    cfg.Logger,
	}
}

// Create opens a removal request for one of the user's exposures. The
// exposure must belong to the user, the profile must carry a name, the
// plan's active-request budget must have room, and no other active
// request may reference the same exposure.
func (s *Service) Create(ctx context.Context, userID, exposureID, requestType string) (*models.RequestView, error) {
	if requestType == "" {
		requestType = TypeOptOut
	}
	switch requestType {
	case TypeOptOut, TypeGDPRDelete, TypeCCPADelete:
	default:
		return nil, fmt.Errorf("unknown request type %q", requestType)
	}

	exp, err := s.exposures.FindByID(ctx, exposureID)
	if err != nil {
		return nil, err
	}
	if exp.UserID != userID {
		return nil, exposure.ErrExposureNotFound
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, user.ErrProfileNotFound) {
		return nil, err
	}
	if profile == nil || !profile.HasName() {
		return nil, ErrProfileIncomplete
	}

	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit := user.ActiveRequestLimit(owner.Plan); limit > 0 {
		active, err := s.requests.CountActiveByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if active >= limit {
			return nil, ErrPlanLimit
		}
	}

	var b *broker.Broker
	if exp.BrokerID != "" {
		b, err = s.brokers.FindByID(ctx, exp.BrokerID)
		if err != nil && !errors.Is(err, broker.ErrBrokerNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	req := &Request{
		ID:          uuid.New().String(),
		UserID:      userID,
		BrokerID:    exp.BrokerID,
		ExposureID:  exp.ID,
		RequestType: requestType,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyOptOutMetadata(req, b, exp)

	exp.Status = exposure.StatusPendingRemoval
	exp.UpdatedAt = now
	if err := s.requests.Create(ctx, req, exp); err != nil {
		return nil, err
	}

	req.BrokerName = sourceName(b, exp)
	if b != nil {
		req.OptOutURL = b.OptOutURL
	}
	req.ProfileURL = exp.ProfileURL

	view := toRequestView(req)
	return &view, nil
}

// Submit marks a pending request as submitted and stamps the expected
// completion date from the broker's processing time.
func (s *Service) Submit(ctx context.Context, userID, requestID string) (*models.SubmitResponse, error) {
	req, err := s.requests.FindByID(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status != StatusPending {
		return nil, ErrInvalidState
	}

	processingDays := DefaultProcessingDays
	if req.BrokerID != "" {
		if b, err := s.brokers.FindByID(ctx, req.BrokerID); err == nil && b.ProcessingDays > 0 {
			processingDays = b.ProcessingDays
		}
	}

	now := time.Now()
	expected := now.AddDate(0, 0, processingDays)
	req.Status = StatusSubmitted
	req.SubmittedAt = &now
	req.ExpectedCompletion = &expected
	req.UpdatedAt = now

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	expectedTS := models.Timestamp(expected)
	return &models.SubmitResponse{
		Status:             models.RequestStatus(req.Status),
		ExpectedCompletion: &expectedTS,
		Message:            "Request submitted. Follow the instructions to complete the opt-out process.",
	}, nil
}

// Complete marks a request as completed and advances its exposure to
// removed. Valid from submitted, or from pending when the user finishes
// the opt-out without a submit step. A second call fails with
// ErrInvalidState rather than re-stamping the completion time.
func (s *Service) Complete(ctx context.Context, userID, requestID string) (*models.CompleteResponse, error) {
	req, err := s.requests.FindByID(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status != StatusPending && req.Status != StatusSubmitted {
		return nil, ErrInvalidState
	}

	now := time.Now()

	var exp *exposure.Exposure
	if req.ExposureID != "" {
		exp, err = s.exposures.FindByID(ctx, req.ExposureID)
		if err != nil && !errors.Is(err, exposure.ErrExposureNotFound) {
			return nil, err
		}
	}
	if exp != nil {
		exp.Status = exposure.StatusRemoved
		exp.RemovedAt = &now
		exp.UpdatedAt = now
	}

	req.Status = StatusCompleted
	req.CompletedAt = &now
	req.RequiresUserAction = false
	req.UpdatedAt = now

	if err := s.requests.UpdateWithExposure(ctx, req, exp); err != nil {
		return nil, err
	}

	s.notifyRemovalConfirmed(ctx, userID, req)

	return &models.CompleteResponse{
		Status:  models.RequestStatus(req.Status),
		Message: "Your data has been marked as removed!",
	}, nil
}

// Fail terminates an active request without completing it. Used by the
// worker when a broker rejects a request.
func (s *Service) Fail(ctx context.Context, userID, requestID, note string) error {
	req, err := s.requests.FindByID(ctx, userID, requestID)
	if err != nil {
		return err
	}

	if !req.Active() {
		return ErrInvalidState
	}

	now := time.Now()
	req.Status = StatusFailed
	if note != "" {
		req.Notes = note
	}
	req.UpdatedAt = now

	return s.requests.Update(ctx, req)
}

// List returns the user's requests newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.RequestView, error) {
	requests, err := s.requests.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.RequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, toRequestView(req))
	}
	return views, nil
}

// Stats returns the user's request aggregates.
func (s *Service) Stats(ctx context.Context, userID string) (*models.RequestStats, error) {
	stats, err := s.requests.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.RequestStats{
		Total:          stats.Total,
		Pending:        stats.Pending,
		Submitted:      stats.Submitted,
		Completed:      stats.Completed,
		Failed:         stats.Failed,
		RequiresAction: stats.RequiresAction,
	}, nil
}

func (s *Service) notifyRemovalConfirmed(ctx context.Context, userID string, req *Request) {
	name := req.BrokerName
	if name == "" {
		name = "a data broker"
	}

	if s.alerts != nil {
		err := s.alerts.Notify(ctx, userID, alert.TypeRemovalConfirmed, alert.SeverityLow,
			fmt.Sprintf("Listing removed from %s", name),
			"Your removal request was completed and the listing is gone.", req.ProfileURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("request_id", req.ID).Msg("creating removal alert failed")
		}
	}

	if s.mailer != nil {
		owner, err := s.users.FindByID(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("loading user for removal mail failed")
			return
		}
		if err := s.mailer.SendRemovalConfirmed(ctx, owner.Email, name); err != nil {
			s.logger.Warn().Err(err).Str("request_id", req.ID).Msg("sending removal mail failed")
		}
	}
}

// applyOptOutMetadata copies the broker's opt-out procedure onto the
// request so it survives catalog changes.
func applyOptOutMetadata(req *Request, b *broker.Broker, exp *exposure.Exposure) {
	if b == nil {
		req.Instructions = manualInstructions(sourceName(nil, exp), "", exp.ProfileURL, "")
		req.RequiresUserAction = true
		req.MethodUsed = MethodManual
		return
	}

	if b.CanAutomate {
		req.Instructions = fmt.Sprintf(
			"An opt-out request will be submitted to %s automatically. "+
				"Your data should be removed within %d days. No further action needed.",
			b.Name, processingDaysOrDefault(b))
		req.RequiresUserAction = false
		req.MethodUsed = MethodAutoForm
		return
	}

	req.Instructions = manualInstructions(b.Name, b.OptOutInstructions, exp.ProfileURL, b.OptOutURL)
	req.RequiresUserAction = true
	req.MethodUsed = MethodManual
}

func manualInstructions(name, steps, profileURL, optOutURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Manual removal required for %s:\n\n", name)
	if steps != "" {
		sb.WriteString(steps)
	} else {
		sb.WriteString("1. Visit the website where your data was found\n" +
			"2. Look for 'Privacy Policy' or 'Opt Out' links (usually in footer)\n" +
			"3. Follow their removal process\n" +
			"4. Reference CCPA/GDPR rights if in CA or EU")
	}
	if profileURL != "" {
		fmt.Fprintf(&sb, "\n\nYour profile URL: %s", profileURL)
	}
	if optOutURL != "" {
		fmt.Fprintf(&sb, "\n\nDirect opt-out link: %s", optOutURL)
	}
	return sb.String()
}

func processingDaysOrDefault(b *broker.Broker) int {
	if b != nil && b.ProcessingDays > 0 {
		return b.ProcessingDays
	}
	return DefaultProcessingDays
}

func sourceName(b *broker.Broker, exp *exposure.Exposure) string {
	if b != nil {
		return b.Name
	}
	if exp != nil && exp.SourceName != "" {
		return exp.SourceName
	}
	return "Unknown Source"
}

func toRequestView(req *Request) models.RequestView {
	view := models.RequestView{
		ID:                 req.ID,
		BrokerID:           req.BrokerID,
		BrokerName:         req.BrokerName,
		ExposureID:         req.ExposureID,
		RequestType:        models.RequestType(req.RequestType),
		Status:             models.RequestStatus(req.Status),
		RequiresUserAction: req.RequiresUserAction,
		Instructions:       req.Instructions,
		OptOutURL:          req.OptOutURL,
		ProfileURL:         req.ProfileURL,
		MethodUsed:         req.MethodUsed,
		CreatedAt:          models.Timestamp(req.CreatedAt),
	}
	if req.SubmittedAt != nil {
		ts := models.Timestamp(*req.SubmittedAt)
		view.SubmittedAt = &ts
	}
	if req.ExpectedCompletion != nil {
		ts := models.Timestamp(*req.ExpectedCompletion)
		view.ExpectedCompletion = &ts
	}
	if req.CompletedAt != nil {
		ts := models.Timestamp(*req.CompletedAt)
		view.CompletedAt = &ts
	}
	return view
}
