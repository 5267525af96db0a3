// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides the authentication core for Gatehouse.
//
// # Domain Types
//
// User records should be created with NewUser, which validates the email
// and password hash before any repository sees them. Direct struct
// initialization bypasses validation and may create invalid state.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, login, session resolution, logout
//   - PasswordResetService - reset token issue and consumption
//
// Services are created with New*Service constructors that validate
// dependencies. All mutable state lives behind UserRepository; the
// services themselves are safe for concurrent use.
package auth
