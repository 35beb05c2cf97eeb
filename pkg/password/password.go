// Package password provides password hashing and complexity validation.
package password

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the minimum accepted password length
const MinLength = 8

var (
	// ErrTooShort indicates the password is below the minimum length
	ErrTooShort = errors.New("password must be at least 8 characters")
	// ErrTooWeak indicates the password lacks required character classes
	ErrTooWeak = errors.New("password must contain upper and lower case letters and a digit")
)

// Hash hashes a plaintext password with bcrypt
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks a plaintext password against a bcrypt hash
func Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Validate checks password complexity requirements
func Validate(plaintext string) error {
	if len(plaintext) < MinLength {
		return ErrTooShort
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return ErrTooWeak
	}

	return nil
}
