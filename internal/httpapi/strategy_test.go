// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/auth/memory"
	"github.com/gatewarden/gatewarden/internal/auth/mocks"
	"github.com/gatewarden/gatewarden/internal/httpapi"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"none", "basic", "session", "session-with-expiry"} {
		t.Run(s, func(t *testing.T) {
			kind, err := httpapi.ParseKind(s)
			require.NoError(t, err)
			assert.Equal(t, httpapi.Kind(s), kind)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := httpapi.ParseKind("oauth")
		assert.Error(t, err)
	})

	t.Run("empty kind", func(t *testing.T) {
		_, err := httpapi.ParseKind("")
		assert.Error(t, err)
	})
}

func exclusions(t *testing.T, patterns ...string) *httpapi.ExclusionList {
	t.Helper()
	list, err := httpapi.NewExclusionList(patterns)
	require.NoError(t, err)
	return list
}

func TestNewStrategy(t *testing.T) {
	users := memory.NewUserRepository()
	hasher := auth.NewArgon2idHasher()
	sessions, err := auth.NewSessionService(users, hasher, 0)
	require.NoError(t, err)
	excluded := exclusions(t, "/")

	t.Run("requires exclusion list", func(t *testing.T) {
		_, err := httpapi.NewStrategy(httpapi.KindNone, httpapi.StrategyDeps{})
		assert.Error(t, err)
	})

	t.Run("basic requires users and hasher", func(t *testing.T) {
		_, err := httpapi.NewStrategy(httpapi.KindBasic, httpapi.StrategyDeps{Excluded: excluded})
		assert.Error(t, err)
	})

	t.Run("session requires session service", func(t *testing.T) {
		_, err := httpapi.NewStrategy(httpapi.KindSession, httpapi.StrategyDeps{Excluded: excluded})
		assert.Error(t, err)
	})

	t.Run("builds each kind", func(t *testing.T) {
		deps := httpapi.StrategyDeps{
			Users:    users,
			Hasher:   hasher,
			Sessions: sessions,
			Excluded: excluded,
		}
		for _, kind := range []httpapi.Kind{
			httpapi.KindNone, httpapi.KindBasic,
			httpapi.KindSession, httpapi.KindSessionExpiry,
		} {
			strategy, err := httpapi.NewStrategy(kind, deps)
			require.NoError(t, err)
			assert.NotNil(t, strategy)
		}
	})
}

func TestRequiresAuth(t *testing.T) {
	strategy, err := httpapi.NewStrategy(httpapi.KindNone, httpapi.StrategyDeps{
		Excluded: exclusions(t, "/", "/users/", "/api/v1/stat*"),
	})
	require.NoError(t, err)

	assert.False(t, strategy.RequiresAuth("/"))
	assert.False(t, strategy.RequiresAuth("/users"))
	assert.False(t, strategy.RequiresAuth("/users/"))
	assert.False(t, strategy.RequiresAuth("/api/v1/status"))
	assert.True(t, strategy.RequiresAuth("/profile"))
	// No path at all still requires a credential.
	assert.True(t, strategy.RequiresAuth(""))
}

func TestNoAuth(t *testing.T) {
	strategy, err := httpapi.NewStrategy(httpapi.KindNone, httpapi.StrategyDeps{
		Excluded: exclusions(t, "/"),
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, ok := strategy.Credential(r)
	assert.False(t, ok)

	user, resolveErr := strategy.Resolve(context.Background(), "anything")
	require.NoError(t, resolveErr)
	assert.Nil(t, user)
}

func TestBasicAuth(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	hasher := auth.NewArgon2idHasher()

	passwordHash, err := hasher.Hash("secret")
	require.NoError(t, err)
	registered, err := auth.NewUser("alice@example.com", passwordHash)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, registered))

	strategy, err := httpapi.NewStrategy(httpapi.KindBasic, httpapi.StrategyDeps{
		Users:    users,
		Hasher:   hasher,
		Excluded: exclusions(t, "/"),
	})
	require.NoError(t, err)

	basic := func(email, password string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
	}

	t.Run("extracts only Basic headers", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		_, ok := strategy.Credential(r)
		assert.False(t, ok)

		r.Header.Set("Authorization", "Bearer sometoken")
		_, ok = strategy.Credential(r)
		assert.False(t, ok)

		r.Header.Set("Authorization", basic("alice@example.com", "secret"))
		cred, ok := strategy.Credential(r)
		assert.True(t, ok)
		assert.NotEmpty(t, cred)
	})

	t.Run("valid credentials resolve", func(t *testing.T) {
		user, err := strategy.Resolve(ctx, basic("alice@example.com", "secret"))
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("wrong password does not resolve", func(t *testing.T) {
		user, err := strategy.Resolve(ctx, basic("alice@example.com", "wrong"))
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("unknown email does not resolve", func(t *testing.T) {
		user, err := strategy.Resolve(ctx, basic("ghost@example.com", "secret"))
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("invalid base64 does not resolve", func(t *testing.T) {
		user, err := strategy.Resolve(ctx, "Basic !!!notbase64!!!")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("payload without colon does not resolve", func(t *testing.T) {
		cred := "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolonhere"))
		user, err := strategy.Resolve(ctx, cred)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetByEmail", mock.Anything, "alice@example.com").
			Return(nil, errors.New("connection refused"))

		broken, err := httpapi.NewStrategy(httpapi.KindBasic, httpapi.StrategyDeps{
			Users:    repo,
			Hasher:   hasher,
			Excluded: exclusions(t, "/"),
		})
		require.NoError(t, err)

		user, err := broken.Resolve(ctx, basic("alice@example.com", "secret"))
		assert.Error(t, err)
		assert.Nil(t, user)
	})

	t.Run("password containing colons works", func(t *testing.T) {
		hash, err := hasher.Hash("pa:ss:word")
		require.NoError(t, err)
		colonUser, err := auth.NewUser("bob@example.com", hash)
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, colonUser))

		user, err := strategy.Resolve(ctx, basic("bob@example.com", "pa:ss:word"))
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "bob@example.com", user.Email)
	})
}

func TestSessionAuth(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	hasher := auth.NewArgon2idHasher()
	sessions, err := auth.NewSessionService(users, hasher, 0)
	require.NoError(t, err)

	passwordHash, err := hasher.Hash("secret")
	require.NoError(t, err)
	registered, err := auth.NewUser("alice@example.com", passwordHash)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, registered))

	token, err := sessions.CreateSession(ctx, registered.ID)
	require.NoError(t, err)

	strategy, err := httpapi.NewStrategy(httpapi.KindSession, httpapi.StrategyDeps{
		Sessions:   sessions,
		CookieName: "_my_session_id",
		Excluded:   exclusions(t, "/"),
	})
	require.NoError(t, err)

	t.Run("extracts the session cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		_, ok := strategy.Credential(r)
		assert.False(t, ok)

		r.AddCookie(&http.Cookie{Name: "_my_session_id", Value: token})
		cred, ok := strategy.Credential(r)
		assert.True(t, ok)
		assert.Equal(t, token, cred)
	})

	t.Run("other cookies are ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		r.AddCookie(&http.Cookie{Name: "tracking", Value: "xyz"})
		_, ok := strategy.Credential(r)
		assert.False(t, ok)
	})

	t.Run("live token resolves", func(t *testing.T) {
		user, err := strategy.Resolve(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("bogus token does not resolve", func(t *testing.T) {
		user, err := strategy.Resolve(ctx, "bogus")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetBySessionTokenHash", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))
		brokenSessions, err := auth.NewSessionService(repo, hasher, 0)
		require.NoError(t, err)

		broken, err := httpapi.NewStrategy(httpapi.KindSession, httpapi.StrategyDeps{
			Sessions: brokenSessions,
			Excluded: exclusions(t, "/"),
		})
		require.NoError(t, err)

		user, err := broken.Resolve(ctx, token)
		assert.Error(t, err)
		assert.Nil(t, user)
	})
}
