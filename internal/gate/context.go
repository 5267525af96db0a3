// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package gate

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/auth"
)

type contextKey struct{}

// principalKey carries the resolved user through the request context.
var principalKey = contextKey{}

// WithPrincipal returns a context carrying the resolved user.
func WithPrincipal(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext returns the user resolved by the gate for this
// request, or false if the request reached the handler unauthenticated
// (exempt path, or no gate installed).
func PrincipalFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(principalKey).(*auth.User)
	return user, ok && user != nil
}
