// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxEmailLength bounds stored email addresses.
const MaxEmailLength = 254

// User represents a registered account.
//
// SessionToken is present only while a session is active; ResetToken only
// while a reset request is pending. SessionCreatedAt travels with
// SessionToken: it is stamped when the token is set and cleared with it,
// always in the same record write.
type User struct {
	ID               ulid.ULID
	Email            string
	HashedPassword   string
	SessionToken     *string
	SessionCreatedAt *time.Time
	ResetToken       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser creates a validated User with a fresh ID and no active session
// or pending reset.
func NewUser(email, hashedPassword string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if hashedPassword == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("hashed password cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidateEmail validates an email address. The check is deliberately
// shallow: non-empty, bounded, and shaped like local@domain. Deliverability
// is the mailer's problem.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("USER_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email must be of the form local@domain")
	}
	return nil
}

// Field names an addressable User attribute for lookups and updates.
type Field string

// Addressable fields.
const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionToken   Field = "session_token"
	FieldResetToken     Field = "reset_token"
)

// lookupFields are the fields FindBy accepts.
var lookupFields = map[Field]bool{
	FieldID:           true,
	FieldEmail:        true,
	FieldSessionToken: true,
	FieldResetToken:   true,
}

// updatableFields are the fields Update accepts.
var updatableFields = map[Field]bool{
	FieldEmail:          true,
	FieldHashedPassword: true,
	FieldSessionToken:   true,
	FieldResetToken:     true,
}

// Lookupable reports whether FindBy accepts the field.
func (f Field) Lookupable() bool { return lookupFields[f] }

// Updatable reports whether Update accepts the field.
func (f Field) Updatable() bool { return updatableFields[f] }

// Changes maps updatable fields to their new values. A nil value clears the
// field; email and hashed_password are mandatory attributes and cannot be
// cleared.
type Changes map[Field]*string

// Validate checks every change against the permitted update set.
func (c Changes) Validate() error {
	if len(c) == 0 {
		return oops.Code("USER_EMPTY_UPDATE").Errorf("no fields to update")
	}
	for field, value := range c {
		if !field.Updatable() {
			return oops.Code("USER_INVALID_FIELD").
				With("field", string(field)).
				Wrap(ErrInvalidField)
		}
		if value == nil && (field == FieldEmail || field == FieldHashedPassword) {
			return oops.Code("USER_INVALID_FIELD").
				With("field", string(field)).
				Errorf("%s cannot be cleared", string(field))
		}
	}
	return nil
}

// UserRepository is the user directory: the single source of truth for user
// records. Implementations must apply Update as one atomic record write and
// must serialize conflicting writes to the same record.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateUser (wrapped) if a user
	// with the same email already exists; implementations enforce this with
	// a uniqueness constraint of their own, not a prior lookup.
	Create(ctx context.Context, user *User) error

	// FindBy retrieves the user matching field == value. Returns ErrNotFound
	// (wrapped) when nothing matches and ErrInvalidField (wrapped) for a
	// field outside {id, email, session_token, reset_token}. When more than
	// one row could match, the first by (created_at, id) wins.
	FindBy(ctx context.Context, field Field, value string) (*User, error)

	// Update applies the changes to the user with the given ID as a single
	// atomic write. Returns ErrNotFound (wrapped) if the ID does not
	// resolve and ErrInvalidField (wrapped) for a disallowed field.
	// Setting session_token also stamps session_created_at; clearing it
	// clears the timestamp.
	Update(ctx context.Context, id ulid.ULID, changes Changes) error
}

// Clock supplies the current time. Injectable so expiration logic is
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
