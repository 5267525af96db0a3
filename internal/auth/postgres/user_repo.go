// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres provides the PostgreSQL implementation of the user
// directory.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository needs. Keeping it
// an interface lets tests substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements auth.UserRepository using PostgreSQL.
//
// Email uniqueness is enforced by the users_email_key constraint, so a
// concurrent duplicate registration loses at insert time regardless of any
// prior lookup the caller performed.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, hashed_password, session_token, session_created_at, reset_token, created_at, updated_at`

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, session_token, session_created_at, reset_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		user.ID.String(),
		user.Email,
		user.HashedPassword,
		user.SessionToken,
		user.SessionCreatedAt,
		user.ResetToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE").
				With("email", user.Email).
				Wrap(auth.ErrDuplicateUser)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return nil
}

// FindBy retrieves the user matching field == value. Multi-match predicates
// (possible only if a token uniqueness guarantee were ever violated) resolve
// to the oldest record.
func (r *UserRepository) FindBy(ctx context.Context, field auth.Field, value string) (*auth.User, error) {
	column, err := lookupColumn(field)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s = $1
		ORDER BY created_at, id
		LIMIT 1
	`, userColumns, column), value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("field", string(field)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("field", string(field)).
			Wrap(err)
	}
	return user, nil
}

// Update applies the changes to the user with the given ID as a single
// UPDATE statement. Setting session_token stamps session_created_at in the
// same write; clearing it nulls the timestamp.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, changes auth.Changes) error {
	if err := changes.Validate(); err != nil {
		return err
	}

	set := make([]string, 0, len(changes)+2)
	args := []any{id.String()}
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Fixed field order keeps the generated SQL deterministic.
	for _, field := range []auth.Field{auth.FieldEmail, auth.FieldHashedPassword, auth.FieldSessionToken, auth.FieldResetToken} {
		value, ok := changes[field]
		if !ok {
			continue
		}
		switch field {
		case auth.FieldEmail:
			set = append(set, "email = "+place(*value))
		case auth.FieldHashedPassword:
			set = append(set, "hashed_password = "+place(*value))
		case auth.FieldSessionToken:
			if value == nil {
				set = append(set, "session_token = NULL", "session_created_at = NULL")
			} else {
				set = append(set, "session_token = "+place(*value))
				set = append(set, "session_created_at = "+place(time.Now()))
			}
		case auth.FieldResetToken:
			if value == nil {
				set = append(set, "reset_token = NULL")
			} else {
				set = append(set, "reset_token = "+place(*value))
			}
		}
	}
	set = append(set, "updated_at = "+place(time.Now()))

	result, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $1`, strings.Join(set, ", ")),
		args...,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// lookupColumn maps a lookupable field to its column. The switch doubles as
// the guard that keeps caller input out of the SQL text.
func lookupColumn(field auth.Field) (string, error) {
	switch field {
	case auth.FieldID:
		return "id", nil
	case auth.FieldEmail:
		return "email", nil
	case auth.FieldSessionToken:
		return "session_token", nil
	case auth.FieldResetToken:
		return "reset_token", nil
	default:
		return "", oops.Code("USER_INVALID_FIELD").
			With("field", string(field)).
			Wrap(auth.ErrInvalidField)
	}
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr            string
		email            string
		hashedPassword   string
		sessionToken     *string
		sessionCreatedAt *time.Time
		resetToken       *string
		createdAt        time.Time
		updatedAt        time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&hashedPassword,
		&sessionToken,
		&sessionCreatedAt,
		&resetToken,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:               id,
		Email:            email,
		HashedPassword:   hashedPassword,
		SessionToken:     sessionToken,
		SessionCreatedAt: sessionCreatedAt,
		ResetToken:       resetToken,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
