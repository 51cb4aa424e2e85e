package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// ErrProfileIncomplete is returned when the profile lacks the name a
// scan needs.
var ErrProfileIncomplete = errors.New("profile must include first and last name")

const (
	defaultConcurrency = 4
	runTimeout         = 15 * time.Minute
)

// Job identifies a scan to run asynchronously.
type Job struct {
	ScanID string `json:"scan_id"`
	UserID string `json:"user_id"`
}

// Dispatcher hands a scan job to an external worker. When nil, the
// service runs scans in-process.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Service runs broker scans for users.
type Service struct {
	brokers     broker.Repository
	exposures   exposure.Repository
	users       user.Repository
	alerts      *alert.Service
	prober      Prober
	progress    *ProgressStore
	dispatcher  Dispatcher
	concurrency int
	logger      zerolog.Logger
}

// ServiceConfig holds configuration for the scan service.
type ServiceConfig struct {
	Brokers     broker.Repository
	Exposures   exposure.Repository
	Users       user.Repository
	Alerts      *alert.Service
	Prober      Prober
	Progress    *ProgressStore
	Dispatcher  Dispatcher
	Concurrency int
	Logger      zerolog.Logger
}

// NewService creates a new scan service.
func NewService(cfg ServiceConfig) *Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Service{
		brokers:     cfg.Brokers,
		exposures:   cfg.Exposures,
		users:       cfg.Users,
		alerts:      cfg.Alerts,
		prober:      cfg.Prober,
		progress:    cfg.Progress,
		dispatcher:  cfg.Dispatcher,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}
}

// Start accepts a scan for the user and schedules it. The profile must
// carry at least a first and last name.
func (s *Service) Start(ctx context.Context, userID string) (*models.ScanAccepted, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.HasName() {
		return nil, ErrProfileIncomplete
	}

	targets, err := s.scanTargets(ctx, userID)
	if err != nil {
		return nil, err
	}

	scanID := uuid.New().String()
	if err := s.progress.Start(ctx, scanID, userID, len(targets)); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, Job{ScanID: scanID, UserID: userID}); err != nil {
			return nil, fmt.Errorf("dispatching scan job: %w", err)
		}
	} else {
		go func() {
			runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()
			if err := s.Run(runCtx, scanID, userID); err != nil {
				s.logger.Error().Err(err).Str("scan_id", scanID).Msg("scan run failed")
			}
		}()
	}

	return &models.ScanAccepted{
		ScanID:  scanID,
		Status:  models.ScanState(StatePending),
		Message: "Scanning brokers in background",
	}, nil
}

// Run executes a scan: probes each broker in the user's plan-limited
// subset and records findings as exposures. Called in-process by Start
// or by the worker consuming dispatched jobs.
func (s *Service) Run(ctx context.Context, scanID, userID string) error {
	if err := s.progress.SetStatus(ctx, scanID, StateInProgress); err != nil {
		return err
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		s.markFailed(ctx, scanID)
		return err
	}

	targets, err := s.scanTargets(ctx, userID)
	if err != nil {
		s.markFailed(ctx, scanID)
		return err
	}

	s.logger.Info().
		Str("scan_id", scanID).
		Int("brokers", len(targets)).
		Msg("starting broker scan")

	brokersChan := make(chan *broker.Broker, len(targets))
	for _, b := range targets {
		brokersChan <- b
	}
	close(brokersChan)

	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range brokersChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				s.probeBroker(ctx, scanID, userID, b, profile)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.markFailed(ctx, scanID)
		return err
	}

	s.logger.Info().Str("scan_id", scanID).Msg("broker scan completed")
	return s.progress.SetStatus(ctx, scanID, StateCompleted)
}

// Status reads the progress of the user's scan. An empty scanID means
// the user's most recent scan.
func (s *Service) Status(ctx context.Context, userID, scanID string) (*models.ScanStatus, error) {
	if scanID == "" {
		latest, err := s.progress.LatestForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		scanID = latest
	}

	progress, err := s.progress.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}

	return &models.ScanStatus{
		ScanID:       progress.ScanID,
		Status:       models.ScanState(progress.Status),
		TotalBrokers: progress.TotalBrokers,
		Scanned:      progress.Scanned,
		Found:        progress.Found,
	}, nil
}

func (s *Service) probeBroker(ctx context.Context, scanID, userID string, b *broker.Broker, profile *user.Profile) {
	result, err := s.prober.Probe(ctx, b, profile)
	if err != nil {
		s.logger.Warn().Err(err).Str("broker", b.Domain).Msg("broker probe failed")
		result = &Result{}
	}

	if result.Found {
		if err := s.recordFinding(ctx, userID, b, result); err != nil {
			s.logger.Error().Err(err).Str("broker", b.Domain).Msg("recording finding failed")
		}
	}

	if err := s.progress.Step(ctx, scanID, result.Found); err != nil {
		s.logger.Warn().Err(err).Str("scan_id", scanID).Msg("recording progress failed")
	}
}

// recordFinding upserts the exposure for a hit. Existing non-removed
// exposures are refreshed in place; a hit on a removed exposure means
// the listing came back.
func (s *Service) recordFinding(ctx context.Context, userID string, b *broker.Broker, result *Result) error {
	now := time.Now()

	existing, err := s.exposures.FindByUserAndBroker(ctx, userID, b.ID)
	if err != nil {
		if !errors.Is(err, exposure.ErrExposureNotFound) {
			return err
		}
		return s.createExposure(ctx, userID, b, result, now)
	}

	reListed := existing.Status == exposure.StatusRemoved
	if reListed {
		existing.Status = exposure.StatusReListed
		existing.RemovedAt = nil
	}
	existing.ProfileURL = result.ProfileURL
	existing.DataFound = result.DataFound
	existing.LastCheckedAt = now
	existing.UpdatedAt = now

	if err := s.exposures.Update(ctx, existing); err != nil {
		return err
	}

	if reListed {
		s.notify(ctx, userID, alert.TypeReListed, alert.SeverityCritical,
			fmt.Sprintf("Re-listed on %s!", b.Name),
			fmt.Sprintf("Your information has reappeared on %s after removal. A new removal request is recommended.", b.Name),
			result.ProfileURL)
	}
	return nil
}

func (s *Service) createExposure(ctx context.Context, userID string, b *broker.Broker, result *Result, now time.Time) error {
	exp := &exposure.Exposure{
		ID:              uuid.New().String(),
		UserID:          userID,
		BrokerID:        b.ID,
		SourceType:      exposure.SourceBroker,
		Status:          exposure.StatusFound,
		ProfileURL:      result.ProfileURL,
		DataFound:       result.DataFound,
		FirstDetectedAt: now,
		LastCheckedAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.exposures.Create(ctx, exp); err != nil {
		return err
	}

	s.notify(ctx, userID, alert.TypeNewExposure, alert.SeverityHigh,
		fmt.Sprintf("New exposure found on %s", b.Name),
		fmt.Sprintf("Your personal information was found on %s. We recommend submitting a removal request.", b.Name),
		result.ProfileURL)
	return nil
}

func (s *Service) notify(ctx context.Context, userID, alertType, severity, title, description, sourceURL string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Notify(ctx, userID, alertType, severity, title, description, sourceURL); err != nil {
		s.logger.Warn().Err(err).Str("alert_type", alertType).Msg("creating scan alert failed")
	}
}

// scanTargets returns the active brokers covered by the user's plan.
func (s *Service) scanTargets(ctx context.Context, userID string) ([]*broker.Broker, error) {
	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	targets, err := s.brokers.AllActive(ctx)
	if err != nil {
		return nil, err
	}

	if limit := user.ScanBrokerLimit(owner.Plan); limit > 0 && len(targets) > limit {
		targets = targets[:limit]
	}
	return targets, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*user.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrProfileNotFound) {
			return nil, ErrProfileIncomplete
		}
		return nil, err
	}
	return profile, nil
}

func (s *Service) markFailed(ctx context.Context, scanID string) {
	if err := s.progress.SetStatus(ctx, scanID, StateFailed); err != nil {
		s.logger.Warn().Err(err).Str("scan_id", scanID).Msg("marking scan failed errored")
	}
}
