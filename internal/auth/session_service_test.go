// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/auth/mocks"
	"github.com/gatewarden/gatewarden/pkg/errutil"
)

func notFoundErr() error {
	return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("alice@example.com", "$argon2id$stored")
	require.NoError(t, err)
	return user
}

func TestSessionServiceLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials create a session", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "secret", user.PasswordHash).Return(true, nil)
		repo.On("GetByID", ctx, user.ID).Return(user, nil)
		repo.On("SetSessionToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		got, token, err := svc.Login(ctx, user.Email, "secret")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("unknown email is invalid credentials", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)

		repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, notFoundErr())
		// Verification still runs against a dummy hash so timing doesn't
		// reveal whether the email exists.
		hasher.On("Verify", "secret", mock.AnythingOfType("string")).Return(false, nil)

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "ghost@example.com", "secret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("wrong password is invalid credentials", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "wrong", user.PasswordHash).Return(false, nil)

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, user.Email, "wrong")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("repository failure surfaces as login failure", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)

		repo.On("GetByEmail", ctx, "alice@example.com").Return(nil, errors.New("connection refused"))

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "alice@example.com", "secret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("malformed stored hash is invalid credentials", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "secret", user.PasswordHash).Return(false, errors.New("invalid hash format"))

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, user.Email, "secret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})
}

func TestSessionServiceCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		id := ulid.Make()

		repo.On("GetByID", ctx, id).Return(nil, notFoundErr())

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, err = svc.CreateSession(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_USER_NOT_FOUND")
	})

	t.Run("replaces previous session", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		repo.On("GetByID", ctx, user.ID).Return(user, nil).Twice()
		repo.On("SetSessionToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Twice()

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		token1, err := svc.CreateSession(ctx, user.ID)
		require.NoError(t, err)
		token2, err := svc.CreateSession(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
	})
}

func TestSessionServiceResolveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token is invalid", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, err = svc.ResolveUser(ctx, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)

		repo.On("GetBySessionTokenHash", ctx, auth.HashToken("sometoken")).Return(nil, notFoundErr())

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		_, err = svc.ResolveUser(ctx, "sometoken")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})

	t.Run("live token resolves the user", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		tokenHash := auth.HashToken("livetoken")
		now := time.Now()
		user.SessionTokenHash = &tokenHash
		user.SessionCreatedAt = &now

		repo.On("GetBySessionTokenHash", ctx, tokenHash).Return(user, nil)

		svc, err := auth.NewSessionService(repo, hasher, time.Hour)
		require.NoError(t, err)

		got, err := svc.ResolveUser(ctx, "livetoken")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("expired token is cleared and invalid", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		tokenHash := auth.HashToken("staletoken")
		created := time.Now().Add(-2 * time.Hour)
		user.SessionTokenHash = &tokenHash
		user.SessionCreatedAt = &created

		repo.On("GetBySessionTokenHash", ctx, tokenHash).Return(user, nil)
		repo.On("ClearSessionToken", ctx, user.ID).Return(nil)

		svc, err := auth.NewSessionService(repo, hasher, time.Hour)
		require.NoError(t, err)

		_, err = svc.ResolveUser(ctx, "staletoken")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := testUser(t)

		tokenHash := auth.HashToken("foreveryoung")
		created := time.Now().Add(-1000 * time.Hour)
		user.SessionTokenHash = &tokenHash
		user.SessionCreatedAt = &created

		repo.On("GetBySessionTokenHash", ctx, tokenHash).Return(user, nil)

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		got, err := svc.ResolveUser(ctx, "foreveryoung")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})
}

func TestSessionServiceDestroySession(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the session token", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		id := ulid.Make()

		repo.On("ClearSessionToken", ctx, id).Return(nil)

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)
		require.NoError(t, svc.DestroySession(ctx, id))
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		id := ulid.Make()

		repo.On("ClearSessionToken", ctx, id).Return(notFoundErr())

		svc, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		err = svc.DestroySession(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_USER_NOT_FOUND")
	})
}

func TestNewSessionService(t *testing.T) {
	repo := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)

	t.Run("nil repository", func(t *testing.T) {
		_, err := auth.NewSessionService(nil, hasher, 0)
		assert.Error(t, err)
	})

	t.Run("nil hasher", func(t *testing.T) {
		_, err := auth.NewSessionService(repo, nil, 0)
		assert.Error(t, err)
	})

	t.Run("negative ttl", func(t *testing.T) {
		_, err := auth.NewSessionService(repo, hasher, -time.Second)
		assert.Error(t, err)
	})
}
