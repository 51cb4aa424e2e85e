package scan_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/scan"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// fakeProber reports hits for a fixed set of broker domains.
type fakeProber struct {
	hits map[string]string
}

func (p *fakeProber) Probe(_ context.Context, b *broker.Broker, _ *user.Profile) (*scan.Result, error) {
	profileURL, ok := p.hits[b.Domain]
	if !ok {
		return &scan.Result{}, nil
	}
	return &scan.Result{
		Found:      true,
		ProfileURL: profileURL,
		DataFound:  map[string]bool{"name": true, "address": true},
	}, nil
}

// captureDispatcher records dispatched jobs so tests can run them
// synchronously.
type captureDispatcher struct {
	jobs []scan.Job
}

func (d *captureDispatcher) Dispatch(_ context.Context, job scan.Job) error {
	d.jobs = append(d.jobs, job)
	return nil
}

type scanFixture struct {
	svc        *scan.Service
	users      *user.InMemoryRepository
	brokers    *broker.InMemoryRepository
	exposures  *exposure.InMemoryRepository
	alerts     *alert.Service
	prober     *fakeProber
	dispatcher *captureDispatcher

	userID string
}

func newScanFixture(t *testing.T, withProfile bool) *scanFixture {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &scanFixture{
		users:     user.NewInMemoryRepository(),
		brokers:   broker.NewInMemoryRepository(),
		exposures: exposure.NewInMemoryRepository(),
		prober:    &fakeProber{hits: make(map[string]string)},
	}
	f.alerts = alert.NewService(alert.NewInMemoryRepository())

	f.dispatcher = &captureDispatcher{}
	f.svc = scan.NewService(scan.ServiceConfig{
		Brokers:    f.brokers,
		Exposures:  f.exposures,
		Users:      f.users,
		Alerts:     f.alerts,
		Prober:     f.prober,
		Progress:   scan.NewProgressStore(client),
		Dispatcher: f.dispatcher,
		Logger:     zerolog.Nop(),
	})

	f.userID = uuid.New().String()
	now := time.Now()
	require.NoError(t, f.users.Create(ctx, &user.User{
		ID:        f.userID,
		Email:     "jane@example.com",
		Plan:      user.PlanFree,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	if withProfile {
		require.NoError(t, f.users.UpsertProfile(ctx, &user.Profile{
			ID:        uuid.New().String(),
			UserID:    f.userID,
			FirstName: "Jane",
			LastName:  "Doe",
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	require.NoError(t, broker.Seed(ctx, f.brokers))
	return f
}

// runScan starts a scan and executes it synchronously.
func (f *scanFixture) runScan(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	accepted, err := f.svc.Start(ctx, f.userID)
	require.NoError(t, err)
	require.NotEmpty(t, accepted.ScanID)

	require.NoError(t, f.svc.Run(ctx, accepted.ScanID, f.userID))
	return accepted.ScanID
}

func TestService_Start_RequiresProfile(t *testing.T) {
	f := newScanFixture(t, false)

	_, err := f.svc.Start(context.Background(), f.userID)
	assert.ErrorIs(t, err, scan.ErrProfileIncomplete)
}

func TestService_Scan_RecordsFindings(t *testing.T) {
	f := newScanFixture(t, true)
	ctx := context.Background()

	f.prober.hits["spokeo.com"] = "https://spokeo.com/Jane-Doe/p1"
	f.prober.hits["intelius.com"] = "https://intelius.com/people/Jane-Doe"

	scanID := f.runScan(t)

	status, err := f.svc.Status(ctx, f.userID, scanID)
	require.NoError(t, err)
	assert.Equal(t, "completed", string(status.Status))
	assert.Equal(t, len(broker.BuiltinCatalog()), status.TotalBrokers)
	assert.Equal(t, status.TotalBrokers, status.Scanned)
	assert.Equal(t, 2, status.Found)

	exposures, err := f.exposures.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, exposures, 2)
	for _, exp := range exposures {
		assert.Equal(t, exposure.StatusFound, exp.Status)
		assert.NotEmpty(t, exp.ProfileURL)
	}

	// One new_exposure alert per finding.
	alerts, err := f.alerts.List(ctx, f.userID, false, 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, "new_exposure", string(a.AlertType))
	}
}

func TestService_Scan_DedupesExistingExposure(t *testing.T) {
	f := newScanFixture(t, true)
	ctx := context.Background()

	f.prober.hits["spokeo.com"] = "https://spokeo.com/Jane-Doe/p1"

	f.runScan(t)

	exposures, err := f.exposures.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, exposures, 1)
	first := exposures[0]

	// Scanning again refreshes the row instead of duplicating it.
	f.prober.hits["spokeo.com"] = "https://spokeo.com/Jane-Doe/p2"
	f.runScan(t)

	exposures, err = f.exposures.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, exposures, 1)
	assert.Equal(t, first.ID, exposures[0].ID)
	assert.Equal(t, "https://spokeo.com/Jane-Doe/p2", exposures[0].ProfileURL)
	assert.True(t, exposures[0].LastCheckedAt.After(first.LastCheckedAt) ||
		exposures[0].LastCheckedAt.Equal(first.LastCheckedAt))

	// Only the first scan raised a new_exposure alert.
	alerts, err := f.alerts.List(ctx, f.userID, false, 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestService_Scan_ReListedDetection(t *testing.T) {
	f := newScanFixture(t, true)
	ctx := context.Background()

	f.prober.hits["spokeo.com"] = "https://spokeo.com/Jane-Doe/p1"
	f.runScan(t)

	// Mark the exposure removed, as a completed request would.
	exposures, err := f.exposures.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, exposures, 1)

	removed := time.Now()
	exposures[0].Status = exposure.StatusRemoved
	exposures[0].RemovedAt = &removed
	require.NoError(t, f.exposures.Update(ctx, exposures[0]))

	// The next hit flips it to re_listed and raises a critical alert.
	f.runScan(t)

	exposures, err = f.exposures.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, exposures, 1)
	assert.Equal(t, exposure.StatusReListed, exposures[0].Status)
	assert.Nil(t, exposures[0].RemovedAt)

	alerts, err := f.alerts.List(ctx, f.userID, false, 0)
	require.NoError(t, err)

	var reListed int
	for _, a := range alerts {
		if string(a.AlertType) == "re_listed" {
			reListed++
			assert.Equal(t, "critical", string(a.Severity))
		}
	}
	assert.Equal(t, 1, reListed)
}

func TestService_Status_LatestScan(t *testing.T) {
	f := newScanFixture(t, true)
	ctx := context.Background()

	scanID := f.runScan(t)

	// Empty scan ID resolves to the user's most recent scan.
	status, err := f.svc.Status(ctx, f.userID, "")
	require.NoError(t, err)
	assert.Equal(t, scanID, status.ScanID)

	// Unknown users have no scan on record.
	_, err = f.svc.Status(ctx, uuid.New().String(), "")
	assert.ErrorIs(t, err, scan.ErrScanNotFound)
}
