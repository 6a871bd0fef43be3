// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxEmailLength bounds stored email addresses.
const MaxEmailLength = 254

// emailRegex is deliberately loose: one '@' with non-empty,
// whitespace-free local part and domain. Matching is exact and
// case-sensitive everywhere else in the system.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// User is an identity record. Email is unique and immutable after
// creation. At most one live session token and one live reset token
// exist per user; both are stored as SHA-256 hashes and are mutually
// independent.
type User struct {
	ID               ulid.ULID
	Email            string
	PasswordHash     string
	SessionTokenHash *string
	SessionCreatedAt *time.Time
	ResetTokenHash   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser creates a validated User with no live tokens.
func NewUser(email, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasSession returns true if the user has a live session token.
func (u *User) HasSession() bool {
	return u.SessionTokenHash != nil
}

// SessionExpiredAt reports whether the session would be expired at t
// given the ttl. A zero ttl means sessions never expire. Users with
// no session are always expired.
func (u *User) SessionExpiredAt(t time.Time, ttl time.Duration) bool {
	if u.SessionTokenHash == nil {
		return true
	}
	if ttl <= 0 {
		return false
	}
	if u.SessionCreatedAt == nil {
		// No creation timestamp to judge liveness by; fail closed.
		return true
	}
	return t.Sub(*u.SessionCreatedAt) > ttl
}

// ValidateEmail validates an email address against rules.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("USER_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email must contain a single @ and no whitespace")
	}
	return nil
}

// UserRepository manages user persistence. It is the single shared
// mutable resource in the system; implementations must serialize
// read-modify-write sequences on a single user record.
type UserRepository interface {
	// Create stores a new user. Returns ErrUserExists (wrapped) if the
	// email is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound (wrapped) if
	// no user has the given ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (exact, case-sensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetBySessionTokenHash retrieves the user holding the given live
	// session token hash.
	GetBySessionTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// SetSessionToken replaces the user's session token hash and
	// creation time. Last write wins across concurrent logins.
	SetSessionToken(ctx context.Context, id ulid.ULID, tokenHash string, createdAt time.Time) error

	// ClearSessionToken removes the user's session token. Clearing an
	// already-cleared session is a no-op, not an error.
	ClearSessionToken(ctx context.Context, id ulid.ULID) error

	// SetResetToken replaces the user's reset token hash.
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string) error

	// ConsumeResetToken atomically finds the user holding the given
	// reset token hash, replaces their password hash, and clears the
	// reset token. Returns ErrResetTokenInvalid (wrapped) if no user
	// holds the hash, so a token consumes at most once even under
	// concurrent calls.
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*User, error)

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
