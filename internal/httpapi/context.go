// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/auth"
)

type contextKey struct{ name string }

var userKey = contextKey{"user"}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the authenticated user attached by the auth
// middleware, or nil when the request was not authenticated.
func CurrentUser(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userKey).(*auth.User)
	return user
}
