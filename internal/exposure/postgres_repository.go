package exposure

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL exposure repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const exposureColumns = `
	e.id, e.user_id, COALESCE(e.broker_id::text, ''),
	e.source_name, e.source_type, e.status,
	e.profile_url, e.data_found, e.screenshot_url,
	e.first_detected_at, e.last_checked_at, e.removed_at,
	e.created_at, e.updated_at,
	COALESCE(b.name, e.source_name)
`

const exposureFrom = `
	FROM broker_exposures e
	LEFT JOIN data_brokers b ON b.id = e.broker_id
`

// Create inserts a new exposure.
func (r *PostgresRepository) Create(ctx context.Context, exposure *Exposure) error {
	query := `
		INSERT INTO broker_exposures (
			id, user_id, broker_id, source_name, source_type, status,
			profile_url, data_found, screenshot_url,
			first_detected_at, last_checked_at, removed_at,
			created_at, updated_at
		)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		exposure.ID,
		exposure.UserID,
		exposure.BrokerID,
		exposure.SourceName,
		exposure.SourceType,
		exposure.Status,
		exposure.ProfileURL,
		exposure.DataFound,
		exposure.ScreenshotURL,
		exposure.FirstDetectedAt,
		exposure.LastCheckedAt,
		exposure.RemovedAt,
		exposure.CreatedAt,
		exposure.UpdatedAt,
	)
	return err
}

// FindByID retrieves an exposure by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Exposure, error) {
	query := `SELECT ` + exposureColumns + exposureFrom + ` WHERE e.id = $1`
	return r.scanOne(ctx, query, id)
}

// FindByUserAndBroker retrieves the user's exposure for a catalog broker.
func (r *PostgresRepository) FindByUserAndBroker(ctx context.Context, userID, brokerID string) (*Exposure, error) {
	query := `SELECT ` + exposureColumns + exposureFrom + ` WHERE e.user_id = $1 AND e.broker_id = $2`
	return r.scanOne(ctx, query, userID, brokerID)
}

// ListByUser returns the user's exposures newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Exposure, error) {
	query := `
		SELECT ` + exposureColumns + exposureFrom + `
		WHERE e.user_id = $1
		ORDER BY e.first_detected_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exposures []*Exposure
	for rows.Next() {
		exposure, err := scanExposure(rows)
		if err != nil {
			return nil, err
		}
		exposures = append(exposures, exposure)
	}
	return exposures, rows.Err()
}

// Update persists changes to an existing exposure.
func (r *PostgresRepository) Update(ctx context.Context, exposure *Exposure) error {
	query := `
		UPDATE broker_exposures SET
			status = $2, profile_url = $3, data_found = $4, screenshot_url = $5,
			last_checked_at = $6, removed_at = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		exposure.ID,
		exposure.Status,
		exposure.ProfileURL,
		exposure.DataFound,
		exposure.ScreenshotURL,
		exposure.LastCheckedAt,
		exposure.RemovedAt,
		exposure.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExposureNotFound
	}
	return nil
}

// ListRemovedBefore returns removed exposures whose last check predates
// the cutoff, oldest check first.
func (r *PostgresRepository) ListRemovedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Exposure, error) {
	query := `
		SELECT ` + exposureColumns + exposureFrom + `
		WHERE e.status = 'removed' AND e.last_checked_at < $1
		ORDER BY e.last_checked_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exposures []*Exposure
	for rows.Next() {
		exposure, err := scanExposure(rows)
		if err != nil {
			return nil, err
		}
		exposures = append(exposures, exposure)
	}
	return exposures, rows.Err()
}

// StatsByUser aggregates the user's exposures for the dashboard.
func (r *PostgresRepository) StatsByUser(ctx context.Context, userID string) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'found'),
			COUNT(*) FILTER (WHERE status = 'pending_removal'),
			COUNT(*) FILTER (WHERE status = 'removed'),
			COUNT(DISTINCT broker_id) FILTER (WHERE broker_id IS NOT NULL)
		FROM broker_exposures
		WHERE user_id = $1
	`

	var stats Stats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalExposures,
		&stats.PendingRemovals,
		&stats.CompletedRemovals,
		&stats.BrokersScanned,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*Exposure, error) {
	exposure, err := scanExposure(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExposureNotFound
		}
		return nil, err
	}
	return exposure, nil
}

func scanExposure(row pgx.Row) (*Exposure, error) {
	var e Exposure
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.BrokerID,
		&e.SourceName,
		&e.SourceType,
		&e.Status,
		&e.ProfileURL,
		&e.DataFound,
		&e.ScreenshotURL,
		&e.FirstDetectedAt,
		&e.LastCheckedAt,
		&e.RemovedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.BrokerName,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

var _ Repository = (*PostgresRepository)(nil)
