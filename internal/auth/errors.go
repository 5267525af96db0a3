// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Sentinel errors for the authentication core. Callers match them with
// errors.Is; the oops wrappers around them carry codes and context for logs.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser is returned when registration collides on email.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidField is returned when a lookup or update targets an
	// attribute outside the permitted set.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidToken is returned when a reset token is unknown or has
	// already been consumed.
	ErrInvalidToken = errors.New("invalid reset token")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two cases are deliberately
	// indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
