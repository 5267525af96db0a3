// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	user, err := auth.NewUser("bob@example.com", "some-hash")
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", user.Email)
	assert.Equal(t, "some-hash", user.HashedPassword)
	assert.Nil(t, user.SessionToken)
	assert.Nil(t, user.SessionCreatedAt)
	assert.Nil(t, user.ResetToken)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestNewUser_EmptyHash(t *testing.T) {
	_, err := auth.NewUser("bob@example.com", "")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "USER_INVALID_HASH")
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "simple address", email: "bob@example.com"},
		{name: "subdomain", email: "bob@mail.example.com"},
		{name: "plus tag", email: "bob+tag@example.com"},
		{name: "empty", email: "", wantErr: true},
		{name: "no at sign", email: "bobexample.com", wantErr: true},
		{name: "missing local part", email: "@example.com", wantErr: true},
		{name: "missing domain", email: "bob@", wantErr: true},
		{name: "too long", email: strings.Repeat("a", 250) + "@b.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.email)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "USER_INVALID_EMAIL")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestField_Lookupable(t *testing.T) {
	assert.True(t, auth.FieldID.Lookupable())
	assert.True(t, auth.FieldEmail.Lookupable())
	assert.True(t, auth.FieldSessionToken.Lookupable())
	assert.True(t, auth.FieldResetToken.Lookupable())
	assert.False(t, auth.FieldHashedPassword.Lookupable())
	assert.False(t, auth.Field("password").Lookupable())
}

func TestField_Updatable(t *testing.T) {
	assert.True(t, auth.FieldEmail.Updatable())
	assert.True(t, auth.FieldHashedPassword.Updatable())
	assert.True(t, auth.FieldSessionToken.Updatable())
	assert.True(t, auth.FieldResetToken.Updatable())
	assert.False(t, auth.FieldID.Updatable())
	assert.False(t, auth.Field("is_admin").Updatable())
}

func TestChanges_Validate(t *testing.T) {
	value := "v"

	tests := []struct {
		name     string
		changes  auth.Changes
		wantCode string
	}{
		{
			name:     "empty changes",
			changes:  auth.Changes{},
			wantCode: "USER_EMPTY_UPDATE",
		},
		{
			name:    "set session token",
			changes: auth.Changes{auth.FieldSessionToken: &value},
		},
		{
			name:    "clear session token",
			changes: auth.Changes{auth.FieldSessionToken: nil},
		},
		{
			name: "rotate password and clear reset token",
			changes: auth.Changes{
				auth.FieldHashedPassword: &value,
				auth.FieldResetToken:     nil,
			},
		},
		{
			name:     "id is not updatable",
			changes:  auth.Changes{auth.FieldID: &value},
			wantCode: "USER_INVALID_FIELD",
		},
		{
			name:     "unknown field",
			changes:  auth.Changes{auth.Field("is_admin"): &value},
			wantCode: "USER_INVALID_FIELD",
		},
		{
			name:     "email cannot be cleared",
			changes:  auth.Changes{auth.FieldEmail: nil},
			wantCode: "USER_INVALID_FIELD",
		},
		{
			name:     "hashed password cannot be cleared",
			changes:  auth.Changes{auth.FieldHashedPassword: nil},
			wantCode: "USER_INVALID_FIELD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.changes.Validate()
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			assert.NoError(t, err)
		})
	}
}
