package scan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrScanNotFound is returned when a scan's progress has expired or
// never existed.
var ErrScanNotFound = errors.New("scan not found")

// Scan states.
const (
	StatePending    = "pending"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// progressTTL bounds how long scan progress stays readable.
const progressTTL = 24 * time.Hour

// Progress is a point-in-time snapshot of a scan.
type Progress struct {
	ScanID       string
	Status       string
	TotalBrokers int
	Scanned      int
	Found        int
}

// ProgressStore tracks scan progress in Redis so status polls can be
// served by any API instance.
type ProgressStore struct {
	client *redis.Client
}

// NewProgressStore creates a Redis-backed progress store.
func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func scanKey(scanID string) string {
	return "scan:" + scanID
}

func userScanKey(userID string) string {
	return "scan:user:" + userID
}

// Start records a new scan in pending state and remembers it as the
// user's latest scan.
func (s *ProgressStore) Start(ctx context.Context, scanID, userID string, totalBrokers int) error {
	key := scanKey(scanID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":  StatePending,
		"total":   totalBrokers,
		"scanned": 0,
		"found":   0,
	})
	pipe.Expire(ctx, key, progressTTL)
	pipe.Set(ctx, userScanKey(userID), scanID, progressTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording scan start: %w", err)
	}
	return nil
}

// SetStatus updates the scan's state.
func (s *ProgressStore) SetStatus(ctx context.Context, scanID, status string) error {
	if err := s.client.HSet(ctx, scanKey(scanID), "status", status).Err(); err != nil {
		return fmt.Errorf("updating scan status: %w", err)
	}
	return nil
}

// Step records one probed broker, incrementing the found counter when
// the probe was a hit.
func (s *ProgressStore) Step(ctx context.Context, scanID string, found bool) error {
	key := scanKey(scanID)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "scanned", 1)
	if found {
		pipe.HIncrBy(ctx, key, "found", 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording scan step: %w", err)
	}
	return nil
}

// Get returns the scan's progress, or ErrScanNotFound.
func (s *ProgressStore) Get(ctx context.Context, scanID string) (*Progress, error) {
	fields, err := s.client.HGetAll(ctx, scanKey(scanID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading scan progress: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrScanNotFound
	}

	return &Progress{
		ScanID:       scanID,
		Status:       fields["status"],
		TotalBrokers: atoiOrZero(fields["total"]),
		Scanned:      atoiOrZero(fields["scanned"]),
		Found:        atoiOrZero(fields["found"]),
	}, nil
}

// LatestForUser returns the user's most recent scan ID, or
// ErrScanNotFound when no scan is on record.
func (s *ProgressStore) LatestForUser(ctx context.Context, userID string) (string, error) {
	scanID, err := s.client.Get(ctx, userScanKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrScanNotFound
		}
		return "", fmt.Errorf("reading latest scan: %w", err)
	}
	return scanID, nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
