// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const userColumnsPattern = `SELECT id, email, hashed_password, session_token, session_created_at, reset_token, created_at, updated_at\s+FROM users`

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *postgres.UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, postgres.NewUserRepository(mock)
}

func userRow(user *auth.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "hashed_password", "session_token",
		"session_created_at", "reset_token", "created_at", "updated_at",
	}).AddRow(
		user.ID.String(), user.Email, user.HashedPassword, user.SessionToken,
		user.SessionCreatedAt, user.ResetToken, user.CreatedAt, user.UpdatedAt,
	)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user, err := auth.NewUser("bob@example.com", "hash")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.HashedPassword,
				user.SessionToken, user.SessionCreatedAt, user.ResetToken,
				user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate user", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user, err := auth.NewUser("bob@example.com", "hash")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.HashedPassword,
				user.SessionToken, user.SessionCreatedAt, user.ResetToken,
				user.CreatedAt, user.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		err = repo.Create(ctx, user)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateUser)
		errutil.AssertErrorCode(t, err, "USER_DUPLICATE")
	})

	t.Run("other errors pass through", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user, err := auth.NewUser("bob@example.com", "hash")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.HashedPassword,
				user.SessionToken, user.SessionCreatedAt, user.ResetToken,
				user.CreatedAt, user.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		err = repo.Create(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateUser)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_FindBy(t *testing.T) {
	ctx := context.Background()

	t.Run("by email", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user, err := auth.NewUser("bob@example.com", "hash")
		require.NoError(t, err)

		mock.ExpectQuery(userColumnsPattern + `\s+WHERE email = \$1\s+ORDER BY created_at, id\s+LIMIT 1`).
			WithArgs("bob@example.com").
			WillReturnRows(userRow(user))

		got, err := repo.FindBy(ctx, auth.FieldEmail, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
	})

	t.Run("by session token", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user, err := auth.NewUser("bob@example.com", "hash")
		require.NoError(t, err)
		token := "tok-123"
		created := time.Now()
		user.SessionToken = &token
		user.SessionCreatedAt = &created

		mock.ExpectQuery(userColumnsPattern + `\s+WHERE session_token = \$1`).
			WithArgs("tok-123").
			WillReturnRows(userRow(user))

		got, err := repo.FindBy(ctx, auth.FieldSessionToken, "tok-123")
		require.NoError(t, err)
		require.NotNil(t, got.SessionToken)
		assert.Equal(t, "tok-123", *got.SessionToken)
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(userColumnsPattern + `\s+WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "email", "hashed_password", "session_token",
				"session_created_at", "reset_token", "created_at", "updated_at",
			}))

		_, err := repo.FindBy(ctx, auth.FieldEmail, "nobody@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("disallowed field never reaches the database", func(t *testing.T) {
		_, repo := newMockRepo(t)

		_, err := repo.FindBy(ctx, auth.FieldHashedPassword, "anything")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidField)
		errutil.AssertErrorCode(t, err, "USER_INVALID_FIELD")
	})

	t.Run("invalid stored id surfaces", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		rows := pgxmock.NewRows([]string{
			"id", "email", "hashed_password", "session_token",
			"session_created_at", "reset_token", "created_at", "updated_at",
		}).AddRow("not-a-ulid", "bob@example.com", "hash",
			(*string)(nil), (*time.Time)(nil), (*string)(nil), time.Now(), time.Now())

		mock.ExpectQuery(userColumnsPattern + `\s+WHERE email = \$1`).
			WithArgs("bob@example.com").
			WillReturnRows(rows)

		_, err := repo.FindBy(ctx, auth.FieldEmail, "bob@example.com")
		require.Error(t, err)
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("setting session token stamps timestamp in the same statement", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		token := "tok-123"

		mock.ExpectExec(`UPDATE users SET session_token = \$2, session_created_at = \$3, updated_at = \$4 WHERE id = \$1`).
			WithArgs(id.String(), "tok-123", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, id, auth.Changes{auth.FieldSessionToken: &token})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clearing session token nulls both columns", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET session_token = NULL, session_created_at = NULL, updated_at = \$2 WHERE id = \$1`).
			WithArgs(id.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, id, auth.Changes{auth.FieldSessionToken: nil})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("password rotation with reset token clear is one statement", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		newHash := "new-hash"

		mock.ExpectExec(`UPDATE users SET hashed_password = \$2, reset_token = NULL, updated_at = \$3 WHERE id = \$1`).
			WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, id, auth.Changes{
			auth.FieldHashedPassword: &newHash,
			auth.FieldResetToken:     nil,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		token := "tok-123"

		mock.ExpectExec(`UPDATE users SET session_token = \$2, session_created_at = \$3, updated_at = \$4 WHERE id = \$1`).
			WithArgs(id.String(), "tok-123", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, id, auth.Changes{auth.FieldSessionToken: &token})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("invalid changes never reach the database", func(t *testing.T) {
		_, repo := newMockRepo(t)

		value := "x"
		err := repo.Update(ctx, id, auth.Changes{auth.FieldID: &value})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidField)

		err = repo.Update(ctx, id, auth.Changes{})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_EMPTY_UPDATE")
	})
}
