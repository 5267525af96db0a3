// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory provides an in-memory auth.UserRepository for tests and
// single-process development deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// UserRepository implements auth.UserRepository with a mutex-guarded map.
// Every operation takes the lock, so conflicting writes to the same record
// are serialized, matching what the postgres backend gets from per-row
// atomicity.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]*auth.User
	clock auth.Clock
}

// NewUserRepository creates an empty repository on the system clock.
func NewUserRepository() *UserRepository {
	return NewUserRepositoryWithClock(auth.SystemClock())
}

// NewUserRepositoryWithClock creates an empty repository that stamps
// session_created_at and updated_at from the given clock.
func NewUserRepositoryWithClock(clock auth.Clock) *UserRepository {
	if clock == nil {
		clock = auth.SystemClock()
	}
	return &UserRepository{
		users: make(map[ulid.ULID]*auth.User),
		clock: clock,
	}
}

// Create stores a new user, enforcing email uniqueness under the lock.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return oops.Code("USER_DUPLICATE").
				With("email", user.Email).
				Wrap(auth.ErrDuplicateUser)
		}
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

// FindBy retrieves the user matching field == value.
func (r *UserRepository) FindBy(_ context.Context, field auth.Field, value string) (*auth.User, error) {
	if !field.Lookupable() {
		return nil, oops.Code("USER_INVALID_FIELD").
			With("field", string(field)).
			Wrap(auth.ErrInvalidField)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*auth.User
	for _, u := range r.users {
		if matchField(u, field, value) {
			matches = append(matches, u)
		}
	}
	if len(matches) == 0 {
		return nil, oops.Code("USER_NOT_FOUND").
			With("field", string(field)).
			Wrap(auth.ErrNotFound)
	}

	// Stable tie-break: oldest record first, ID as a secondary key.
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID.Compare(matches[j].ID) < 0
	})

	clone := *matches[0]
	return &clone, nil
}

// Update applies the changes to the user with the given ID in one step
// under the lock.
func (r *UserRepository) Update(_ context.Context, id ulid.ULID, changes auth.Changes) error {
	if err := changes.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	now := r.clock.Now()
	updated := *user
	for field, value := range changes {
		switch field {
		case auth.FieldEmail:
			updated.Email = *value
		case auth.FieldHashedPassword:
			updated.HashedPassword = *value
		case auth.FieldSessionToken:
			if value == nil {
				updated.SessionToken = nil
				updated.SessionCreatedAt = nil
			} else {
				token := *value
				created := now
				updated.SessionToken = &token
				updated.SessionCreatedAt = &created
			}
		case auth.FieldResetToken:
			if value == nil {
				updated.ResetToken = nil
			} else {
				token := *value
				updated.ResetToken = &token
			}
		}
	}
	updated.UpdatedAt = now
	r.users[id] = &updated
	return nil
}

func matchField(u *auth.User, field auth.Field, value string) bool {
	switch field {
	case auth.FieldID:
		return u.ID.String() == value
	case auth.FieldEmail:
		return u.Email == value
	case auth.FieldSessionToken:
		return u.SessionToken != nil && *u.SessionToken == value
	case auth.FieldResetToken:
		return u.ResetToken != nil && *u.ResetToken == value
	default:
		return false
	}
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
