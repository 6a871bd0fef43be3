// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package memory provides an in-memory auth.UserRepository for tests
// and single-process deployments without PostgreSQL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// UserRepository implements auth.UserRepository with a mutex-guarded
// map. The single lock serializes every read-modify-write sequence,
// which satisfies the per-record serialization the services require.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]*auth.User
}

// NewUserRepository creates an empty in-memory repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Wrap(auth.ErrUserExists)
		}
	}

	r.users[user.ID] = cloneUser(user)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return cloneUser(u), nil
}

// GetByEmail retrieves a user by email (exact match).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").
		With("email", email).
		Wrap(auth.ErrNotFound)
}

// GetBySessionTokenHash retrieves the user holding the given live session token hash.
func (r *UserRepository) GetBySessionTokenHash(_ context.Context, tokenHash string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.SessionTokenHash != nil && *u.SessionTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// SetSessionToken replaces the user's session token hash. Last write wins.
func (r *UserRepository) SetSessionToken(_ context.Context, id ulid.ULID, tokenHash string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	u.SessionTokenHash = &tokenHash
	u.SessionCreatedAt = &createdAt
	u.UpdatedAt = time.Now()
	return nil
}

// ClearSessionToken removes the user's session token. Idempotent.
func (r *UserRepository) ClearSessionToken(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	u.SessionTokenHash = nil
	u.SessionCreatedAt = nil
	u.UpdatedAt = time.Now()
	return nil
}

// SetResetToken replaces the user's reset token hash.
func (r *UserRepository) SetResetToken(_ context.Context, id ulid.ULID, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	u.ResetTokenHash = &tokenHash
	u.UpdatedAt = time.Now()
	return nil
}

// ConsumeResetToken atomically redeems a reset token.
func (r *UserRepository) ConsumeResetToken(_ context.Context, tokenHash, newPasswordHash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash {
			u.PasswordHash = newPasswordHash
			u.ResetTokenHash = nil
			u.UpdatedAt = time.Now()
			return cloneUser(u), nil
		}
	}
	return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(auth.ErrResetTokenInvalid)
}

// Delete removes a user.
func (r *UserRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

// cloneUser copies a user so callers never share the stored record.
func cloneUser(u *auth.User) *auth.User {
	c := *u
	if u.SessionTokenHash != nil {
		h := *u.SessionTokenHash
		c.SessionTokenHash = &h
	}
	if u.SessionCreatedAt != nil {
		t := *u.SessionCreatedAt
		c.SessionCreatedAt = &t
	}
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		c.ResetTokenHash = &h
	}
	return &c
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
