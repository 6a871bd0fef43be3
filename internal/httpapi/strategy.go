// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// DefaultCookieName is the session cookie consulted when none is configured.
const DefaultCookieName = "_my_session_id"

// basicPrefix is the scheme prefix of a Basic Authorization header.
const basicPrefix = "Basic "

// Kind selects the authentication strategy. The set is closed and
// parsed once at startup.
type Kind string

// Supported strategy kinds.
const (
	KindNone          Kind = "none"
	KindBasic         Kind = "basic"
	KindSession       Kind = "session"
	KindSessionExpiry Kind = "session-with-expiry"
)

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindNone, KindBasic, KindSession, KindSessionExpiry:
		return Kind(s), nil
	default:
		return "", oops.Code("STRATEGY_UNKNOWN_KIND").
			With("kind", s).
			Errorf("unknown auth strategy %q", s)
	}
}

// Strategy is the per-request authentication gate. Implementations
// are safe for concurrent use.
type Strategy interface {
	// RequiresAuth reports whether requests to path must present a
	// credential. Paths on the exclusion list do not; everything else
	// does, including the empty path (fail closed).
	RequiresAuth(path string) bool

	// Credential extracts the raw credential from the request, if any.
	Credential(r *http.Request) (string, bool)

	// Resolve maps a raw credential to a user identity. A nil user
	// with a nil error means the credential did not resolve; errors
	// are reserved for infrastructure failures.
	Resolve(ctx context.Context, credential string) (*auth.User, error)
}

// StrategyDeps carries the collaborators strategies may need.
type StrategyDeps struct {
	Users      auth.UserRepository  // required for basic
	Hasher     auth.PasswordHasher  // required for basic
	Sessions   *auth.SessionService // required for session kinds
	CookieName string               // session cookie name; defaults to DefaultCookieName
	Excluded   *ExclusionList       // required
}

// NewStrategy builds the strategy for the given kind. The
// session-with-expiry kind uses the same SessionAuth type as session;
// expiry lives in the SessionService TTL, which the caller configures.
func NewStrategy(kind Kind, deps StrategyDeps) (Strategy, error) {
	if deps.Excluded == nil {
		return nil, oops.Errorf("exclusion list is required")
	}

	switch kind {
	case KindNone:
		return &NoAuth{excluded: deps.Excluded}, nil
	case KindBasic:
		if deps.Users == nil {
			return nil, oops.Errorf("user repository is required for basic auth")
		}
		if deps.Hasher == nil {
			return nil, oops.Errorf("password hasher is required for basic auth")
		}
		return &BasicAuth{excluded: deps.Excluded, users: deps.Users, hasher: deps.Hasher}, nil
	case KindSession, KindSessionExpiry:
		if deps.Sessions == nil {
			return nil, oops.Errorf("session service is required for session auth")
		}
		name := deps.CookieName
		if name == "" {
			name = DefaultCookieName
		}
		return &SessionAuth{excluded: deps.Excluded, sessions: deps.Sessions, cookieName: name}, nil
	default:
		return nil, oops.Code("STRATEGY_UNKNOWN_KIND").
			With("kind", string(kind)).
			Errorf("unknown auth strategy %q", string(kind))
	}
}

// gate carries the exclusion matching shared by all strategies.
type gate struct {
	excluded *ExclusionList
}

// RequiresAuth reports whether the path needs a credential. The empty
// path always does; only listed paths are exempt.
func (g gate) RequiresAuth(path string) bool {
	if path == "" {
		return true
	}
	return !g.excluded.Excluded(path)
}

// NoAuth never extracts or resolves a credential: every request to a
// non-excluded path is rejected as unauthenticated.
type NoAuth struct {
	excluded *ExclusionList
}

func (s *NoAuth) RequiresAuth(path string) bool { return gate{s.excluded}.RequiresAuth(path) }

func (s *NoAuth) Credential(*http.Request) (string, bool) { return "", false }

func (s *NoAuth) Resolve(context.Context, string) (*auth.User, error) { return nil, nil }

// BasicAuth resolves identities from the standard Authorization
// header: "Basic " followed by base64("email:password").
type BasicAuth struct {
	excluded *ExclusionList
	users    auth.UserRepository
	hasher   auth.PasswordHasher
}

func (s *BasicAuth) RequiresAuth(path string) bool { return gate{s.excluded}.RequiresAuth(path) }

// Credential returns the Authorization header value if it carries the
// Basic scheme.
func (s *BasicAuth) Credential(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, basicPrefix) {
		return "", false
	}
	return header, true
}

// Resolve decodes the credential and checks it against the stored
// password hash. Malformed input and bad credentials resolve to no
// identity; errors are repository failures only.
func (s *BasicAuth) Resolve(ctx context.Context, credential string) (*auth.User, error) {
	encoded := strings.TrimPrefix(credential, basicPrefix)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil
	}

	email, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("BASIC_RESOLVE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, nil
	}

	return user, nil
}

// SessionAuth resolves identities from an opaque session cookie.
type SessionAuth struct {
	excluded   *ExclusionList
	sessions   *auth.SessionService
	cookieName string
}

func (s *SessionAuth) RequiresAuth(path string) bool { return gate{s.excluded}.RequiresAuth(path) }

// Credential returns the value of the configured session cookie.
func (s *SessionAuth) Credential(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Resolve delegates to the session service. Invalid and expired
// sessions resolve to no identity; storage failures propagate so the
// gate can tell an outage apart from a bad token.
func (s *SessionAuth) Resolve(ctx context.Context, credential string) (*auth.User, error) {
	user, err := s.sessions.ResolveUser(ctx, credential)
	if err != nil {
		if errors.Is(err, auth.ErrSessionInvalid) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Compile-time interface checks.
var (
	_ Strategy = (*NoAuth)(nil)
	_ Strategy = (*BasicAuth)(nil)
	_ Strategy = (*SessionAuth)(nil)
)
