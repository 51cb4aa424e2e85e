package alert

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

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, user_id, alert_type, severity, title, description, source_url,
	is_read, is_dismissed, created_at, read_at
`

// Create inserts a new alert.
func (r *PostgresRepository) Create(ctx context.Context, alert *Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.UserID,
		alert.Type,
		alert.Severity,
		alert.Title,
		alert.Description,
		alert.SourceURL,
		alert.IsRead,
		alert.IsDismissed,
		alert.CreatedAt,
		alert.ReadAt,
	)
	return err
}

// FindByID retrieves the user's alert with the given ID.
func (r *PostgresRepository) FindByID(ctx context.Context, userID, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 AND user_id = $2`

	alert, err := scanAlert(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// ListByUser returns non-dismissed alerts newest first, limited.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1 AND NOT is_dismissed AND (NOT $2::boolean OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// Update persists changes to an existing alert.
func (r *PostgresRepository) Update(ctx context.Context, alert *Alert) error {
	query := `
		UPDATE alerts SET is_read = $2, is_dismissed = $3, read_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, alert.ID, alert.IsRead, alert.IsDismissed, alert.ReadAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// MarkAllRead marks the user's unread alerts as read.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE alerts SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT is_read
	`

	tag, err := r.pool.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// StatsByUser aggregates the user's alerts.
func (r *PostgresRepository) StatsByUser(ctx context.Context, userID string) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_read),
			COUNT(*) FILTER (WHERE NOT is_read AND severity = 'critical'),
			COUNT(*) FILTER (WHERE NOT is_read AND severity = 'high')
		FROM alerts
		WHERE user_id = $1
	`

	var stats Stats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.Total,
		&stats.Unread,
		&stats.Critical,
		&stats.High,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Type,
		&a.Severity,
		&a.Title,
		&a.Description,
		&a.SourceURL,
		&a.IsRead,
		&a.IsDismissed,
		&a.CreatedAt,
		&a.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var _ Repository = (*PostgresRepository)(nil)
