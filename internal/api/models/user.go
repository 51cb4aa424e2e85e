package models

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body for POST /v1/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body for POST /v1/auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// VerifyEmailRequest is the body for POST /v1/auth/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// TokenResponse is returned after successful registration or login.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserView  `json:"user"`
}

// UserView is the public representation of a user account.
type UserView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Plan       Plan      `json:"plan"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// MessageResponse is a generic status message body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Address is one entry in a profile's address history.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
	Years  string `json:"years,omitempty"`
}

// ProfileInput is the body for PUT /v1/users/me/profile.
// All fields are optional; only provided fields are updated.
type ProfileInput struct {
	FirstName    *string   `json:"firstName,omitempty"`
	LastName     *string   `json:"lastName,omitempty"`
	MiddleName   *string   `json:"middleName,omitempty"`
	MaidenName   *string   `json:"maidenName,omitempty"`
	Nicknames    []string  `json:"nicknames,omitempty"`
	Emails       []string  `json:"emails,omitempty"`
	PhoneNumbers []string  `json:"phoneNumbers,omitempty"`
	Addresses    []Address `json:"addresses,omitempty"`
	DateOfBirth  *string   `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
	Relatives    []string  `json:"relatives,omitempty"`
}

// ProfileView is the representation of a user's PII profile.
type ProfileView struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	MiddleName   string     `json:"middleName,omitempty"`
	MaidenName   string     `json:"maidenName,omitempty"`
	Nicknames    []string   `json:"nicknames,omitempty"`
	Emails       []string   `json:"emails,omitempty"`
	PhoneNumbers []string   `json:"phoneNumbers,omitempty"`
	Addresses    []Address  `json:"addresses,omitempty"`
	DateOfBirth  *string    `json:"dateOfBirth,omitempty"`
	Relatives    []string   `json:"relatives,omitempty"`
	CreatedAt    Timestamp  `json:"createdAt"`
	UpdatedAt    Timestamp  `json:"updatedAt"`
}

// MeResponse is returned by GET /v1/users/me.
type MeResponse struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	Plan       Plan         `json:"plan"`
	IsVerified bool         `json:"isVerified"`
	Profile    *ProfileView `json:"profile"`
}
