// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when registering an email that is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrSessionInvalid is returned when a session token matches no live session.
var ErrSessionInvalid = errors.New("session invalid")

// ErrResetTokenInvalid is returned when a reset token matches no user,
// including tokens that were already consumed.
var ErrResetTokenInvalid = errors.New("reset token invalid")
