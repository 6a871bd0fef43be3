// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package auth provides the credential, session, and password-reset
// primitives for Gatewarden.
//
// # Domain Types
//
// The User type carries the identity record plus its single live
// session token hash and single live reset token hash. Create users
// through NewUser, which validates the email and password hash;
// direct struct initialization bypasses validation and may create
// invalid state. Repository implementations receive pre-validated
// types.
//
// # Services
//
// Service types coordinate domain operations:
//   - AccountService - registration
//   - SessionService - session create, resolve, destroy
//   - ResetService - single-use password-reset tokens
//
// Services are created with New*Service constructors that validate
// dependencies.
//
// Plaintext tokens never touch storage: repositories see only the
// SHA-256 hash of session and reset tokens.
package auth
