package user

import "context"

// Repository defines the interface for user and profile persistence.
type Repository interface {
	// Create creates a new user. Returns ErrEmailTaken if the email is
	// already registered.
	Create(ctx context.Context, user *User) error

	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail retrieves a user by email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByResetToken retrieves a user by their password-reset token.
	FindByResetToken(ctx context.Context, token string) (*User, error)

	// FindByVerificationToken retrieves a user by their email-verification token.
	FindByVerificationToken(ctx context.Context, token string) (*User, error)

	// FindByStripeCustomerID retrieves a user by their billing customer reference.
	FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, user *User) error

	// Delete removes a user. Dependent exposures, requests and alerts
	// cascade at the database level.
	Delete(ctx context.Context, id string) error

	// GetProfile retrieves the profile for a user.
	// Returns ErrProfileNotFound if none has been saved yet.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// UpsertProfile creates or replaces the profile for a user.
	UpsertProfile(ctx context.Context, profile *Profile) error
}
