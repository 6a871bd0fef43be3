// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// ResetService issues and consumes single-use password-reset tokens.
type ResetService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewResetService creates a new ResetService with a no-op logger.
func NewResetService(users UserRepository, hasher PasswordHasher) (*ResetService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &ResetService{
		users:  users,
		hasher: hasher,
		logger: slog.New(slog.DiscardHandler),
	}, nil
}

// NewResetServiceWithLogger creates a new ResetService with the provided logger.
func NewResetServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*ResetService, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	s, err := NewResetService(users, hasher)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	return s, nil
}

// Issue generates a reset token for the user with the given email and
// stores its hash, replacing any previously issued token. Returns the
// plaintext token; delivering it to the user is the caller's job.
// Returns ErrNotFound (wrapped) if the email is unknown — callers map
// this to a generic client error and never reveal whether the email
// exists beyond the status code.
func (s *ResetService) Issue(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_USER_NOT_FOUND").Wrap(err)
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, tokenHash, err := GenerateToken()
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, tokenHash); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.Info("reset token issued", "user_id", user.ID.String())
	return token, nil
}

// Consume redeems a reset token: the matching user's password is
// replaced with the hash of newPassword and the token is cleared in
// one atomic step. A second call with the same token fails with
// ErrResetTokenInvalid. Returns the updated user.
func (s *ResetService) Consume(ctx context.Context, token, newPassword string) (*User, error) {
	if token == "" {
		return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}
	if newPassword == "" {
		return nil, ErrEmptyPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	user, err := s.users.ConsumeResetToken(ctx, HashToken(token), passwordHash)
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(err)
		}
		return nil, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	s.logger.Info("password reset", "user_id", user.ID.String())
	return user, nil
}
