// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent. This is NOT a real credential - it's a fake hash that
// will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SessionService binds opaque session tokens to user identities.
// Each user holds at most one live session; a new login silently
// replaces the previous session token (last write wins).
type SessionService struct {
	users  UserRepository
	hasher PasswordHasher
	ttl    time.Duration // 0 = sessions never expire
	logger *slog.Logger
}

// NewSessionService creates a new SessionService with a no-op logger.
// ttl zero disables expiry; the TTL check is evaluated lazily on
// lookup, never by a background sweep.
func NewSessionService(users UserRepository, hasher PasswordHasher, ttl time.Duration) (*SessionService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if ttl < 0 {
		return nil, oops.Errorf("session ttl cannot be negative")
	}
	return &SessionService{
		users:  users,
		hasher: hasher,
		ttl:    ttl,
		logger: slog.New(slog.DiscardHandler),
	}, nil
}

// NewSessionServiceWithLogger creates a new SessionService with the provided logger.
func NewSessionServiceWithLogger(users UserRepository, hasher PasswordHasher, ttl time.Duration, logger *slog.Logger) (*SessionService, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	s, err := NewSessionService(users, hasher, ttl)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	return s, nil
}

// Login verifies an email/password pair and creates a session.
// Returns the user and the plaintext session token.
// Uses constant-time operations to prevent timing-based email enumeration.
func (s *SessionService) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	// Pick the hash to verify against: real, or dummy so that unknown
	// emails take the same time as wrong passwords.
	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && userExists {
		// A malformed stored hash can never verify; treat as invalid
		// credentials rather than leaking the storage state.
		s.logger.Warn("stored password hash failed to parse", "user_id", user.ID.String())
	}
	if !userExists || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	token, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// CreateSession generates a fresh token and stores its hash on the
// user record, replacing any previous session.
func (s *SessionService) CreateSession(ctx context.Context, userID ulid.ULID) (string, error) {
	// Resolve first so a bad ID surfaces as not-found, not a silent
	// zero-row update.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("SESSION_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(err)
		}
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	token, tokenHash, err := GenerateToken()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := s.users.SetSessionToken(ctx, userID, tokenHash, time.Now()); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session token").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.Info("session created", "user_id", userID.String())
	return token, nil
}

// ResolveUser returns the user holding the given session token, or an
// error wrapping ErrSessionInvalid if no live session matches. When a
// TTL is configured, an expired session resolves to invalid and its
// stored token is cleared.
func (s *SessionService) ResolveUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}

	user, err := s.users.GetBySessionTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get user by session token hash").
			Wrap(err)
	}

	if s.ttl > 0 && user.SessionExpiredAt(time.Now(), s.ttl) {
		// Lazy expiry cleanup; resolution fails regardless of the
		// cleanup outcome.
		if clearErr := s.users.ClearSessionToken(ctx, user.ID); clearErr != nil {
			s.logger.Warn("failed to clear expired session", "user_id", user.ID.String(), "error", clearErr)
		}
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrSessionInvalid)
	}

	return user, nil
}

// DestroySession clears the user's session token. Destroying an
// already-cleared session is a no-op.
func (s *SessionService) DestroySession(ctx context.Context, userID ulid.ULID) error {
	if err := s.users.ClearSessionToken(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(err)
		}
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "clear session token").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.Info("session destroyed", "user_id", userID.String())
	return nil
}
