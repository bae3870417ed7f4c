package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlainPassword(t *testing.T) {
	v := NewValidator(Credentials{Email: "admin@example.org", Password: "s3cret"})

	ok, err := v.Validate("admin@example.org", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate("admin@example.org", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Validate("someone@example.org", "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidatePasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	v := NewValidator(Credentials{Email: "admin@example.org", Password: "ignored", PasswordHash: hash})

	ok, err := v.Validate("admin@example.org", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate("admin@example.org", "ignored")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateNotConfigured(t *testing.T) {
	v := NewValidator(Credentials{Email: "admin@example.org"})

	_, err := v.Validate("admin@example.org", "")

	assert.ErrorIs(t, err, ErrCredentialsNotConfigured)
}
