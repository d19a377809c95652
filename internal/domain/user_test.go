package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		displayName string
		password    string
		wantErr     error
	}{
		{
			name:        "valid user",
			email:       "ada@example.com",
			displayName: "Ada",
			password:    "correct-horse-battery",
		},
		{
			name:     "empty email",
			email:    "",
			password: "correct-horse-battery",
			wantErr:  ErrEmptyEmail,
		},
		{
			name:     "malformed email",
			email:    "not-an-email",
			password: "correct-horse-battery",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "password too short",
			email:    "ada@example.com",
			password: "short",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "password too long for bcrypt",
			email:    "ada@example.com",
			password: strings.Repeat("x", 73),
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "empty password",
			email:    "ada@example.com",
			password: "",
			wantErr:  ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.email, tt.displayName, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, "", user.ID.String())
			assert.Equal(t, tt.email, user.Email)
		})
	}
}

func TestUserValidateAcceptsHashOnly(t *testing.T) {
	user, err := NewUser("ada@example.com", "Ada", "correct-horse-battery")
	require.NoError(t, err)

	// After registration the plaintext is dropped and only the hash remains.
	user.Password = ""
	user.HashedPassword = "$2a$12$abcdefghijklmnopqrstuv"
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)
}
