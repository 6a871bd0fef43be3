// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// AccountService handles user registration.
type AccountService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAccountService creates a new AccountService with a no-op logger.
func NewAccountService(users UserRepository, hasher PasswordHasher) (*AccountService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &AccountService{
		users:  users,
		hasher: hasher,
		logger: slog.New(slog.DiscardHandler),
	}, nil
}

// NewAccountServiceWithLogger creates a new AccountService with the provided logger.
func NewAccountServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*AccountService, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	s, err := NewAccountService(users, hasher)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	return s, nil
}

// Register creates a new user with a hashed password and no live
// tokens. Returns ErrUserExists (wrapped) if the email is taken.
func (s *AccountService) Register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		// ErrEmptyPassword already carries its code.
		if errors.Is(err, ErrEmptyPassword) {
			return nil, err
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, passwordHash)
	if err != nil {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "new user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, oops.Code("ACCOUNT_EMAIL_TAKEN").
				With("email", email).
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	return user, nil
}
