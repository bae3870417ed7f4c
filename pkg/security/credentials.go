package security

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrCredentialsNotConfigured is returned when no admin identity is set up.
var ErrCredentialsNotConfigured = errors.New("admin credentials not configured")

// Credentials is the single admin identity allowed into the portal.
// PasswordHash (bcrypt) takes precedence over Password when both are set.
type Credentials struct {
	Email        string
	Password     string
	PasswordHash string
}

type Validator interface {
	Validate(email, password string) (bool, error)
}

type credentialValidator struct {
	creds Credentials
}

func NewValidator(creds Credentials) Validator {
	return &credentialValidator{creds: creds}
}

func (v *credentialValidator) Validate(email, password string) (bool, error) {
	if v.creds.Email == "" || (v.creds.Password == "" && v.creds.PasswordHash == "") {
		return false, ErrCredentialsNotConfigured
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(v.creds.Email)) == 1

	var passwordOK bool
	if v.creds.PasswordHash != "" {
		passwordOK = bcrypt.CompareHashAndPassword([]byte(v.creds.PasswordHash), []byte(password)) == nil
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(v.creds.Password)) == 1
	}

	return emailOK && passwordOK, nil
}

// HashPassword returns a bcrypt hash suitable for Credentials.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
