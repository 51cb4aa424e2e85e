package removal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/privacyeraser/privacyeraser/internal/exposure"
)

// PostgresRepository is a PostgreSQL implementation of Repository. The
// single-active-request invariant is enforced by a partial unique index
// on removal_requests(exposure_id) covering only non-terminal statuses,
// so concurrent creates for the same exposure cannot race.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL removal repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const requestColumns = `
	r.id, r.user_id, COALESCE(r.broker_id::text, ''), COALESCE(r.exposure_id::text, ''),
	r.request_type, r.status,
	r.submitted_at, r.confirmation_number, r.expected_completion, r.completed_at,
	r.instructions, r.requires_user_action, r.method_used, r.notes,
	r.created_at, r.updated_at,
	COALESCE(b.name, e.source_name, 'Unknown Source'),
	COALESCE(b.opt_out_url, ''),
	COALESCE(e.profile_url, '')
`

const requestFrom = `
	FROM removal_requests r
	LEFT JOIN data_brokers b ON b.id = r.broker_id
	LEFT JOIN broker_exposures e ON e.id = r.exposure_id
`

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Create inserts a new request and persists the exposure transition in
// the same transaction.
func (r *PostgresRepository) Create(ctx context.Context, request *Request, exp *exposure.Exposure) error {
	if exp == nil {
		return insertRequest(ctx, r.pool, request)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertRequest(ctx, tx, request); err != nil {
		return err
	}
	if err := updateExposure(ctx, tx, exp); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertRequest(ctx context.Context, db execer, request *Request) error {
	query := `
		INSERT INTO removal_requests (
			id, user_id, broker_id, exposure_id, request_type, status,
			submitted_at, confirmation_number, expected_completion, completed_at,
			instructions, requires_user_action, method_used, notes,
			created_at, updated_at
		)
		VALUES (
			$1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6,
			$7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := db.Exec(ctx, query,
		request.ID,
		request.UserID,
		request.BrokerID,
		request.ExposureID,
		request.RequestType,
		request.Status,
		request.SubmittedAt,
		request.ConfirmationNumber,
		request.ExpectedCompletion,
		request.CompletedAt,
		request.Instructions,
		request.RequiresUserAction,
		request.MethodUsed,
		request.Notes,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation on the active-request partial index
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateActive
		}
		return err
	}
	return nil
}

// updateExposure mirrors the exposure repository's UPDATE so the
// workflow can carry the transition inside its own transaction.
func updateExposure(ctx context.Context, db execer, exp *exposure.Exposure) error {
	query := `
		UPDATE broker_exposures SET
			status = $2, profile_url = $3, data_found = $4, screenshot_url = $5,
			last_checked_at = $6, removed_at = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := db.Exec(ctx, query,
		exp.ID,
		exp.Status,
		exp.ProfileURL,
		exp.DataFound,
		exp.ScreenshotURL,
		exp.LastCheckedAt,
		exp.RemovedAt,
		exp.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return exposure.ErrExposureNotFound
	}
	return nil
}

// FindByID retrieves the user's request with the given ID.
func (r *PostgresRepository) FindByID(ctx context.Context, userID, id string) (*Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` WHERE r.id = $1 AND r.user_id = $2`

	request, err := scanRequest(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

// ListByUser returns the user's requests newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Request, error) {
	query := `
		SELECT ` + requestColumns + requestFrom + `
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// Update persists changes to an existing request.
func (r *PostgresRepository) Update(ctx context.Context, request *Request) error {
	return updateRequest(ctx, r.pool, request)
}

// UpdateWithExposure persists a request update and the coupled exposure
// transition in one transaction.
func (r *PostgresRepository) UpdateWithExposure(ctx context.Context, request *Request, exp *exposure.Exposure) error {
	if exp == nil {
		return updateRequest(ctx, r.pool, request)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateRequest(ctx, tx, request); err != nil {
		return err
	}
	if err := updateExposure(ctx, tx, exp); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func updateRequest(ctx context.Context, db execer, request *Request) error {
	query := `
		UPDATE removal_requests SET
			status = $2, submitted_at = $3, confirmation_number = $4,
			expected_completion = $5, completed_at = $6,
			instructions = $7, requires_user_action = $8, method_used = $9,
			notes = $10, updated_at = $11
		WHERE id = $1
	`

	tag, err := db.Exec(ctx, query,
		request.ID,
		request.Status,
		request.SubmittedAt,
		request.ConfirmationNumber,
		request.ExpectedCompletion,
		request.CompletedAt,
		request.Instructions,
		request.RequiresUserAction,
		request.MethodUsed,
		request.Notes,
		request.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// CountActiveByUser counts the user's pending and submitted requests.
func (r *PostgresRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM removal_requests
		WHERE user_id = $1 AND status IN ('pending', 'submitted')
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// StatsByUser aggregates the user's requests.
func (r *PostgresRepository) StatsByUser(ctx context.Context, userID string) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'submitted'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE requires_user_action)
		FROM removal_requests
		WHERE user_id = $1
	`

	var stats Stats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Submitted,
		&stats.Completed,
		&stats.Failed,
		&stats.RequiresAction,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.BrokerID,
		&req.ExposureID,
		&req.RequestType,
		&req.Status,
		&req.SubmittedAt,
		&req.ConfirmationNumber,
		&req.ExpectedCompletion,
		&req.CompletedAt,
		&req.Instructions,
		&req.RequiresUserAction,
		&req.MethodUsed,
		&req.Notes,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.BrokerName,
		&req.OptOutURL,
		&req.ProfileURL,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

var _ Repository = (*PostgresRepository)(nil)
