// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web serves the JSON account API: registration, login/logout,
// profile, and the password-reset endpoints. All routes pass through the
// authorization gate middleware; handlers translate domain sentinels into
// HTTP status codes and never expose password or hash material.
package web
