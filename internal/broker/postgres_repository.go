package broker

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL broker repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const brokerColumns = `
	id, name, domain, category, search_url_pattern,
	opt_out_url, opt_out_method, opt_out_email, opt_out_instructions,
	requires_verification, requires_id, processing_days,
	can_automate, form_selectors, captcha_type, difficulty,
	is_active, last_verified, created_at, updated_at
`

// Create inserts a broker into the catalog.
func (r *PostgresRepository) Create(ctx context.Context, broker *Broker) error {
	query := `
		INSERT INTO data_brokers (` + brokerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.pool.Exec(ctx, query,
		broker.ID,
		broker.Name,
		broker.Domain,
		broker.Category,
		broker.SearchURLPattern,
		broker.OptOutURL,
		broker.OptOutMethod,
		broker.OptOutEmail,
		broker.OptOutInstructions,
		broker.RequiresVerification,
		broker.RequiresID,
		broker.ProcessingDays,
		broker.CanAutomate,
		broker.FormSelectors,
		broker.CaptchaType,
		broker.Difficulty,
		broker.IsActive,
		broker.LastVerified,
		broker.CreatedAt,
		broker.UpdatedAt,
	)
	return err
}

// FindByID retrieves a broker by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Broker, error) {
	query := `SELECT ` + brokerColumns + ` FROM data_brokers WHERE id = $1`

	broker, err := scanBroker(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBrokerNotFound
		}
		return nil, err
	}
	return broker, nil
}

// ListActive returns active brokers ordered by name, paginated.
func (r *PostgresRepository) ListActive(ctx context.Context, offset, limit int) ([]*Broker, error) {
	query := `
		SELECT ` + brokerColumns + `
		FROM data_brokers
		WHERE is_active
		ORDER BY name
		OFFSET $1 LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBrokers(rows)
}

// AllActive returns every active broker ordered by name.
func (r *PostgresRepository) AllActive(ctx context.Context) ([]*Broker, error) {
	query := `SELECT ` + brokerColumns + ` FROM data_brokers WHERE is_active ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBrokers(rows)
}

// Update persists changes to an existing broker.
func (r *PostgresRepository) Update(ctx context.Context, broker *Broker) error {
	query := `
		UPDATE data_brokers SET
			name = $2, domain = $3, category = $4, search_url_pattern = $5,
			opt_out_url = $6, opt_out_method = $7, opt_out_email = $8, opt_out_instructions = $9,
			requires_verification = $10, requires_id = $11, processing_days = $12,
			can_automate = $13, form_selectors = $14, captcha_type = $15, difficulty = $16,
			is_active = $17, last_verified = $18, updated_at = $19
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		broker.ID,
		broker.Name,
		broker.Domain,
		broker.Category,
		broker.SearchURLPattern,
		broker.OptOutURL,
		broker.OptOutMethod,
		broker.OptOutEmail,
		broker.OptOutInstructions,
		broker.RequiresVerification,
		broker.RequiresID,
		broker.ProcessingDays,
		broker.CanAutomate,
		broker.FormSelectors,
		broker.CaptchaType,
		broker.Difficulty,
		broker.IsActive,
		broker.LastVerified,
		broker.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBrokerNotFound
	}
	return nil
}

func scanBroker(row pgx.Row) (*Broker, error) {
	var b Broker
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Domain,
		&b.Category,
		&b.SearchURLPattern,
		&b.OptOutURL,
		&b.OptOutMethod,
		&b.OptOutEmail,
		&b.OptOutInstructions,
		&b.RequiresVerification,
		&b.RequiresID,
		&b.ProcessingDays,
		&b.CanAutomate,
		&b.FormSelectors,
		&b.CaptchaType,
		&b.Difficulty,
		&b.IsActive,
		&b.LastVerified,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBrokers(rows pgx.Rows) ([]*Broker, error) {
	var brokers []*Broker
	for rows.Next() {
		broker, err := scanBroker(rows)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, broker)
	}
	return brokers, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
