// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package gate

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Strategy extracts a credential from a request and resolves it to a user.
//
// Credential and Resolve are split so the gate can distinguish "nothing
// presented" (401) from "presented but worthless" (403) without the
// strategy knowing about HTTP status codes.
type Strategy interface {
	// Credential returns the raw credential carried by the request and
	// whether one was presented at all.
	Credential(r *http.Request) (string, bool)

	// Resolve maps a presented credential to its user. Any error means the
	// credential does not identify a principal; the gate does not
	// distinguish between the reasons.
	Resolve(ctx context.Context, credential string) (*auth.User, error)
}

// SessionResolver is the part of auth.Service the session strategy needs.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionToken string) (*auth.User, error)
}

// BasicStrategy resolves an HTTP basic authorization value (base64
// "email:password") against the user directory and hasher.
type BasicStrategy struct {
	users  auth.UserRepository
	hasher auth.PasswordHasher
}

// NewBasicStrategy creates a BasicStrategy.
func NewBasicStrategy(users auth.UserRepository, hasher auth.PasswordHasher) (*BasicStrategy, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &BasicStrategy{users: users, hasher: hasher}, nil
}

// Credential returns the Authorization header. Any non-empty header counts
// as presented, even a malformed one: malformed credentials are a resolve
// failure, not an absence.
func (s *BasicStrategy) Credential(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	return h, h != ""
}

// Resolve decodes the basic authorization value and checks the password.
func (s *BasicStrategy) Resolve(ctx context.Context, credential string) (*auth.User, error) {
	encoded, found := strings.CutPrefix(credential, "Basic ")
	if !found {
		return nil, oops.Code("GATE_MALFORMED_AUTHORIZATION").
			Errorf("authorization value is not basic")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, oops.Code("GATE_MALFORMED_AUTHORIZATION").Wrap(err)
	}

	email, password, found := strings.Cut(string(decoded), ":")
	if !found || email == "" {
		return nil, oops.Code("GATE_MALFORMED_AUTHORIZATION").
			Errorf("credential pair is not email:password")
	}

	user, err := s.users.FindBy(ctx, auth.FieldEmail, email)
	if err != nil {
		return nil, oops.Code("GATE_UNKNOWN_PRINCIPAL").Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.HashedPassword)
	if err != nil || !valid {
		return nil, oops.Code("GATE_UNKNOWN_PRINCIPAL").Wrap(auth.ErrInvalidCredentials)
	}

	return user, nil
}

// SessionStrategy resolves a named session cookie through the session
// service. Expiration policy lives in the service, not here.
type SessionStrategy struct {
	sessions   SessionResolver
	cookieName string
}

// NewSessionStrategy creates a SessionStrategy reading the given cookie.
func NewSessionStrategy(sessions SessionResolver, cookieName string) (*SessionStrategy, error) {
	if sessions == nil {
		return nil, oops.Errorf("session resolver is required")
	}
	if cookieName == "" {
		return nil, oops.Errorf("cookie name is required")
	}
	return &SessionStrategy{sessions: sessions, cookieName: cookieName}, nil
}

// Credential returns the session cookie value.
func (s *SessionStrategy) Credential(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Resolve maps the cookie value to its session's user.
func (s *SessionStrategy) Resolve(ctx context.Context, credential string) (*auth.User, error) {
	user, err := s.sessions.ResolveSession(ctx, credential)
	if err != nil {
		return nil, oops.Code("GATE_UNKNOWN_PRINCIPAL").Wrap(err)
	}
	return user, nil
}

// Compile-time interface checks.
var (
	_ Strategy = (*BasicStrategy)(nil)
	_ Strategy = (*SessionStrategy)(nil)
)
