// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// PasswordResetService handles the password reset flow.
//
// A user holds at most one pending reset token; requesting a new one
// overwrites (and thereby invalidates) the previous one. Consuming a token
// rotates the password and clears the token in the same record write, so a
// token can be consumed exactly once.
type PasswordResetService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewPasswordResetService creates a new PasswordResetService with a no-op logger.
func NewPasswordResetService(users UserRepository, hasher PasswordHasher) (*PasswordResetService, error) {
	return NewPasswordResetServiceWithLogger(users, hasher, slog.New(slog.DiscardHandler))
}

// NewPasswordResetServiceWithLogger creates a new PasswordResetService with
// the provided logger.
func NewPasswordResetServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &PasswordResetService{users: users, hasher: hasher, logger: logger}, nil
}

// RequestReset issues a reset token for the user registered under email.
// Returns ErrNotFound (wrapped) for an unknown email. Delivering the token
// to the user is the caller's problem.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindBy(ctx, FieldEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_USER_NOT_FOUND").Wrap(ErrNotFound)
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := NewToken()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.users.Update(ctx, user.ID, Changes{FieldResetToken: &token}); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "reset token issued", "user_id", user.ID.String())
	return token, nil
}

// ConsumeReset rotates the password of the user holding resetToken and
// invalidates the token, both in one atomic record write. Returns
// ErrInvalidToken (wrapped) when no user holds the token.
func (s *PasswordResetService) ConsumeReset(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	user, err := s.users.FindBy(ctx, FieldResetToken, resetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	// One write: the new hash lands and the token dies together.
	changes := Changes{
		FieldHashedPassword: &hash,
		FieldResetToken:     nil,
	}
	if err := s.users.Update(ctx, user.ID, changes); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "rotate password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password rotated via reset token", "user_id", user.ID.String())
	return nil
}
