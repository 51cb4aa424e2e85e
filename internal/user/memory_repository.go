package user

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]*User
	profiles map[string]*Profile // keyed by user ID
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:    make(map[string]*User),
		profiles: make(map[string]*Profile),
	}
}

// Create creates a new user.
func (r *InMemoryRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}

	cpy := *user
	r.users[user.ID] = &cpy
	return nil
}

// FindByID retrieves a user by ID.
func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cpy := *u
	return &cpy, nil
}

// FindByEmail retrieves a user by email.
func (r *InMemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByResetToken retrieves a user by their password-reset token.
func (r *InMemoryRepository) FindByResetToken(_ context.Context, token string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByVerificationToken retrieves a user by their email-verification token.
func (r *InMemoryRepository) FindByVerificationToken(_ context.Context, token string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByStripeCustomerID retrieves a user by their billing customer reference.
func (r *InMemoryRepository) FindByStripeCustomerID(_ context.Context, customerID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, ErrUserNotFound
}

// Update persists changes to an existing user.
func (r *InMemoryRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	cpy := *user
	r.users[user.ID] = &cpy
	return nil
}

// Delete removes a user and their profile.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	delete(r.profiles, id)
	return nil
}

// GetProfile retrieves the profile for a user.
func (r *InMemoryRepository) GetProfile(_ context.Context, userID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cpy := *p
	return &cpy, nil
}

// UpsertProfile creates or replaces the profile for a user.
func (r *InMemoryRepository) UpsertProfile(_ context.Context, profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *profile
	r.profiles[profile.UserID] = &cpy
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
