package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `
	id, email, password_hash, plan,
	stripe_customer_id, stripe_subscription_id, subscription_ends_at,
	is_active, is_verified,
	verification_token, reset_token, reset_token_expires_at,
	created_at, updated_at
`

// Create creates a new user.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Plan,
		user.StripeCustomerID,
		user.StripeSubscriptionID,
		user.SubscriptionEndsAt,
		user.IsActive,
		user.IsVerified,
		user.VerificationToken,
		user.ResetToken,
		user.ResetTokenExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation on the email index
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// FindByID retrieves a user by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail retrieves a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByResetToken retrieves a user by their password-reset token.
func (r *PostgresRepository) FindByResetToken(ctx context.Context, token string) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = $1`, token)
}

// FindByVerificationToken retrieves a user by their email-verification token.
func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

// FindByStripeCustomerID retrieves a user by their billing customer reference.
func (r *PostgresRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)
}

func (r *PostgresRepository) scanUser(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var user User

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Plan,
		&user.StripeCustomerID,
		&user.StripeSubscriptionID,
		&user.SubscriptionEndsAt,
		&user.IsActive,
		&user.IsVerified,
		&user.VerificationToken,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// Update persists changes to an existing user.
func (r *PostgresRepository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			plan = $4,
			stripe_customer_id = $5,
			stripe_subscription_id = $6,
			subscription_ends_at = $7,
			is_active = $8,
			is_verified = $9,
			verification_token = $10,
			reset_token = $11,
			reset_token_expires_at = $12,
			updated_at = $13
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Plan,
		user.StripeCustomerID,
		user.StripeSubscriptionID,
		user.SubscriptionEndsAt,
		user.IsActive,
		user.IsVerified,
		user.VerificationToken,
		user.ResetToken,
		user.ResetTokenExpiresAt,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user. Exposures, requests and alerts cascade via FK.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// GetProfile retrieves the profile for a user.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT
			id, user_id,
			first_name, last_name, middle_name, maiden_name, nicknames,
			emails, phone_numbers, addresses,
			date_of_birth, relatives,
			created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var profile Profile

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.MiddleName,
		&profile.MaidenName,
		&profile.Nicknames,
		&profile.Emails,
		&profile.PhoneNumbers,
		&profile.Addresses,
		&profile.DateOfBirth,
		&profile.Relatives,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &profile, nil
}

// UpsertProfile creates or replaces the profile for a user.
// Addresses are stored as a JSONB column, multi-value fields as text arrays.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, profile *Profile) error {
	query := `
		INSERT INTO user_profiles (
			id, user_id,
			first_name, last_name, middle_name, maiden_name, nicknames,
			emails, phone_numbers, addresses,
			date_of_birth, relatives,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			middle_name = EXCLUDED.middle_name,
			maiden_name = EXCLUDED.maiden_name,
			nicknames = EXCLUDED.nicknames,
			emails = EXCLUDED.emails,
			phone_numbers = EXCLUDED.phone_numbers,
			addresses = EXCLUDED.addresses,
			date_of_birth = EXCLUDED.date_of_birth,
			relatives = EXCLUDED.relatives,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.UserID,
		profile.FirstName,
		profile.LastName,
		profile.MiddleName,
		profile.MaidenName,
		profile.Nicknames,
		profile.Emails,
		profile.PhoneNumbers,
		profile.Addresses,
		profile.DateOfBirth,
		profile.Relatives,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
