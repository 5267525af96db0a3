// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Service provides registration, login, and session operations.
//
// Sessions follow the single-session model: a user holds at most one live
// session token, and a new login overwrites the previous one. Expiration is
// enforced lazily at resolution time; there is no background sweep, and an
// expired token stays stored until the next login or logout overwrites it.
type Service struct {
	users           UserRepository
	hasher          PasswordHasher
	sessionDuration time.Duration
	clock           Clock
	logger          *slog.Logger
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent. This is NOT a real credential - it's a fake hash that will
// never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// NewService creates a new Service with a no-op logger.
// sessionDuration of zero means sessions never expire. A nil clock defaults
// to the system clock.
func NewService(users UserRepository, hasher PasswordHasher, sessionDuration time.Duration, clock Clock) (*Service, error) {
	return NewServiceWithLogger(users, hasher, sessionDuration, clock, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a new Service with the provided logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, sessionDuration time.Duration, clock Clock, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if sessionDuration < 0 {
		return nil, oops.Errorf("session duration cannot be negative")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		users:           users,
		hasher:          hasher,
		sessionDuration: sessionDuration,
		clock:           clock,
		logger:          logger,
	}, nil
}

// Register creates a new user account. Returns ErrDuplicateUser (wrapped)
// when the email is already registered.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	// Friendly fast path. The repository's uniqueness constraint is the
	// authoritative guard against concurrent duplicate registrations.
	if _, err := s.users.FindBy(ctx, FieldEmail, email); err == nil {
		return nil, oops.Code("USER_DUPLICATE").
			With("email", email).
			Wrap(ErrDuplicateUser)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, oops.Code("USER_DUPLICATE").
				With("email", email).
				Wrap(ErrDuplicateUser)
		}
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login authenticates a user by email and password and returns a fresh
// session token. Unknown email and wrong password both yield
// ErrInvalidCredentials (wrapped). A prior session token for the user is
// overwritten, not revoked: it simply becomes unresolvable.
// Uses constant-time operations to prevent email enumeration via timing.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, lookupErr := s.users.FindBy(ctx, FieldEmail, email)

	// Determine which hash to verify against (real or dummy for timing
	// attack prevention).
	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "find user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.HashedPassword
		userExists = true
	}

	// Always verify, so the miss path costs the same as the hit path.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && userExists {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, err := NewToken()
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := s.users.Update(ctx, user.ID, Changes{FieldSessionToken: &token}); err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session created", "user_id", user.ID.String())
	return token, nil
}

// ResolveSession resolves a session token to its user. Returns ErrNotFound
// (wrapped) when the token is unknown, or when an expiration policy is
// configured and the session is past it. An expired session fails exactly as
// an unknown one does; the stored token is left in place.
func (s *Service) ResolveSession(ctx context.Context, sessionToken string) (*User, error) {
	if sessionToken == "" {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}

	user, err := s.users.FindBy(ctx, FieldSessionToken, sessionToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "find user by session token").
			Wrap(err)
	}

	if s.expired(user) {
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrNotFound)
	}

	return user, nil
}

// Logout destroys the session identified by sessionToken. Returns true when
// a live session was cleared, false when the token did not resolve (already
// logged out, expired, or never issued). The false case is not an error;
// calling Logout twice is harmless.
func (s *Service) Logout(ctx context.Context, sessionToken string) (bool, error) {
	user, err := s.ResolveSession(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.users.Update(ctx, user.ID, Changes{FieldSessionToken: nil}); err != nil {
		return false, oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "clear session token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session destroyed", "user_id", user.ID.String())
	return true, nil
}

// expired reports whether the user's session is past the configured
// duration. A zero duration means sessions never expire.
func (s *Service) expired(user *User) bool {
	if s.sessionDuration == 0 || user.SessionCreatedAt == nil {
		return false
	}
	return s.clock.Now().After(user.SessionCreatedAt.Add(s.sessionDuration))
}
