package exposure_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyeraser/privacyeraser/internal/exposure"
)

func newExposure(userID, brokerID, status string, detected time.Time) *exposure.Exposure {
	now := time.Now()
	return &exposure.Exposure{
		ID:              uuid.New().String(),
		UserID:          userID,
		BrokerID:        brokerID,
		Status:          status,
		BrokerName:      "Spokeo",
		DataFound:       map[string]bool{"name": true, "address": true},
		FirstDetectedAt: detected,
		LastCheckedAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestService_List(t *testing.T) {
	repo := exposure.NewInMemoryRepository()
	svc := exposure.NewService(repo)
	ctx := context.Background()

	userID := uuid.New().String()
	older := newExposure(userID, uuid.New().String(), exposure.StatusFound, time.Now().Add(-time.Hour))
	newer := newExposure(userID, uuid.New().String(), exposure.StatusFound, time.Now())
	other := newExposure(uuid.New().String(), uuid.New().String(), exposure.StatusFound, time.Now())

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, other))

	views, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Newest first, scoped to the user.
	assert.Equal(t, newer.ID, views[0].ID)
	assert.Equal(t, older.ID, views[1].ID)
	assert.True(t, views[0].DataFound["name"])
}

func TestService_Stats(t *testing.T) {
	repo := exposure.NewInMemoryRepository()
	svc := exposure.NewService(repo)
	ctx := context.Background()

	userID := uuid.New().String()
	brokerA := uuid.New().String()
	brokerB := uuid.New().String()
	brokerC := uuid.New().String()

	require.NoError(t, repo.Create(ctx, newExposure(userID, brokerA, exposure.StatusFound, time.Now())))
	require.NoError(t, repo.Create(ctx, newExposure(userID, brokerB, exposure.StatusPendingRemoval, time.Now())))
	require.NoError(t, repo.Create(ctx, newExposure(userID, brokerC, exposure.StatusRemoved, time.Now())))

	stats, err := svc.Stats(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalExposures)
	assert.Equal(t, 1, stats.PendingRemovals)
	assert.Equal(t, 1, stats.CompletedRemovals)
	assert.Equal(t, 3, stats.BrokersScanned)
}

func TestRepository_FindByUserAndBroker(t *testing.T) {
	repo := exposure.NewInMemoryRepository()
	ctx := context.Background()

	userID := uuid.New().String()
	brokerID := uuid.New().String()
	exp := newExposure(userID, brokerID, exposure.StatusFound, time.Now())
	require.NoError(t, repo.Create(ctx, exp))

	found, err := repo.FindByUserAndBroker(ctx, userID, brokerID)
	require.NoError(t, err)
	assert.Equal(t, exp.ID, found.ID)

	_, err = repo.FindByUserAndBroker(ctx, userID, uuid.New().String())
	assert.ErrorIs(t, err, exposure.ErrExposureNotFound)
}
