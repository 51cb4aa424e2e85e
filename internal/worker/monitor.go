package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/scan"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// MonitorJob re-checks removed exposures for re-listings. Data brokers
// routinely re-list profiles after an opt-out, so removed listings are
// probed again once they go stale.
type MonitorJob struct {
	config    MonitorConfig
	exposures exposure.Repository
	brokers   broker.Repository
	users     user.Repository
	alerts    *alert.Service
	prober    scan.Prober
	logger    zerolog.Logger
}

// MonitorJobConfig holds dependencies for creating a MonitorJob.
type MonitorJobConfig struct {
	Config    MonitorConfig
	Exposures exposure.Repository
	Brokers   broker.Repository
	Users     user.Repository
	Alerts    *alert.Service
	Prober    scan.Prober
	Logger    zerolog.Logger
}

// NewMonitorJob creates a re-listing monitor.
func NewMonitorJob(cfg MonitorJobConfig) *MonitorJob {
	return &MonitorJob{
		config:    cfg.Config.withDefaults(),
		exposures: cfg.Exposures,
		brokers:   cfg.Brokers,
		users:     cfg.Users,
		alerts:    cfg.Alerts,
		prober:    cfg.Prober,
		logger:    cfg.Logger,
	}
}

// MonitorResult contains the outcome of a monitor run.
type MonitorResult struct {
	StartTime time.Time
	Duration  time.Duration
	Eligible  int
	Checked   int
	Relisted  int
	Failed    int
}

// Run re-checks stale removed exposures and records re-listings.
func (j *MonitorJob) Run(ctx context.Context) *MonitorResult {
	startTime := time.Now()
	result := &MonitorResult{StartTime: startTime}

	cutoff := startTime.Add(-j.config.ReCheckAfter)
	stale, err := j.exposures.ListRemovedBefore(ctx, cutoff, j.config.BatchSize)
	if err != nil {
		j.logger.Error().Err(err).Msg("listing stale removed exposures failed")
		result.Failed++
		result.Duration = time.Since(startTime)
		return result
	}
	result.Eligible = len(stale)

	j.logger.Info().
		Int("eligible", len(stale)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting re-listing monitor")

	work := make(chan *exposure.Exposure, len(stale))
	for _, exp := range stale {
		work <- exp
	}
	close(work)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for exp := range work {
				select {
				case <-ctx.Done():
					return
				default:
				}

				relisted, err := j.checkExposure(ctx, exp)

				mu.Lock()
				if err != nil {
					result.Failed++
				} else {
					result.Checked++
					if relisted {
						result.Relisted++
					}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	result.Duration = time.Since(startTime)
	j.logger.Info().
		Dur("duration", result.Duration).
		Int("checked", result.Checked).
		Int("relisted", result.Relisted).
		Int("failed", result.Failed).
		Msg("re-listing monitor completed")
	return result
}

// checkExposure probes one removed exposure. Exposures without a
// catalog broker or a usable profile are stamped as checked and
// skipped.
func (j *MonitorJob) checkExposure(ctx context.Context, exp *exposure.Exposure) (bool, error) {
	now := time.Now()

	if exp.BrokerID == "" {
		return false, j.touch(ctx, exp, now)
	}

	b, err := j.brokers.FindByID(ctx, exp.BrokerID)
	if err != nil {
		return false, j.touch(ctx, exp, now)
	}

	profile, err := j.users.GetProfile(ctx, exp.UserID)
	if err != nil || !profile.HasName() {
		return false, j.touch(ctx, exp, now)
	}

	probeCtx, cancel := context.WithTimeout(ctx, j.config.ProbeTimeout)
	defer cancel()

	probe, err := j.prober.Probe(probeCtx, b, profile)
	if err != nil {
		j.logger.Warn().Err(err).Str("broker", b.Domain).Msg("re-check probe failed")
		return false, err
	}

	exp.LastCheckedAt = now
	exp.UpdatedAt = now

	if !probe.Found {
		return false, j.exposures.Update(ctx, exp)
	}

	exp.Status = exposure.StatusReListed
	exp.ProfileURL = probe.ProfileURL
	exp.DataFound = probe.DataFound
	exp.RemovedAt = nil
	if err := j.exposures.Update(ctx, exp); err != nil {
		return false, err
	}

	j.notifyRelisted(ctx, exp.UserID, b.Name, probe.ProfileURL)
	return true, nil
}

func (j *MonitorJob) touch(ctx context.Context, exp *exposure.Exposure, now time.Time) error {
	exp.LastCheckedAt = now
	exp.UpdatedAt = now
	return j.exposures.Update(ctx, exp)
}

func (j *MonitorJob) notifyRelisted(ctx context.Context, userID, brokerName, sourceURL string) {
	if j.alerts == nil {
		return
	}
	err := j.alerts.Notify(ctx, userID, alert.TypeReListed, alert.SeverityCritical,
		fmt.Sprintf("Re-listed on %s!", brokerName),
		fmt.Sprintf("Your information has reappeared on %s after removal. A new removal request is recommended.", brokerName),
		sourceURL)
	if err != nil {
		j.logger.Warn().Err(err).Str("user_id", userID).Msg("creating re-listing alert failed")
	}
}
