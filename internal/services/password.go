package services

import (
	"errors"
	"fmt"
	"unicode"

	"civreg/internal/common"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8

	// bcrypt only accepts inputs up to this many bytes.
	maxPasswordBytes = 72
)

var errPasswordTooLong = common.ErrWeakPassword.WithMessage(fmt.Sprintf("Password must not exceed %d bytes", maxPasswordBytes))

// ValidatePasswordStrength enforces at least eight characters, one uppercase
// letter and one digit, and at most 72 bytes.
func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return common.ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return errPasswordTooLong
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !digit {
		return common.ErrWeakPassword
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
