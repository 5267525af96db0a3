// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package gate decides, per inbound request path, whether authentication is
// required, and if so resolves the acting principal.
//
// A Gate is built from an exemption list and at most one credential
// Strategy. Paths matching the exemption list pass through untouched. For
// everything else: no credential presented means 401, a credential that does
// not resolve to a user means 403, and a resolved user is attached to the
// request context for downstream handlers.
//
// Strategies are interchangeable (HTTP basic over the user directory, or a
// session cookie over the session service); exactly one is active per
// deployment, and all of them share the same exemption matching.
package gate
