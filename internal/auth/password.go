package auth

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// PasswordTag is the validator tag enforcing the password policy.
const PasswordTag = "password"

const minPasswordLength = 6

// HashPassword derives a bcrypt hash for password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches hash.
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordViolations lists every policy rule password breaks. An empty result means it is acceptable.
func PasswordViolations(password string) []string {
	if password == "" {
		return []string{"Password must not be empty"}
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	var violations []string
	if len([]rune(password)) < minPasswordLength {
		violations = append(violations, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if !upper {
		violations = append(violations, "Password must contain 1 uppercase letter")
	}
	if !lower {
		violations = append(violations, "Password must have at least 1 lowercase character")
	}
	if !digit {
		violations = append(violations, "Password must contain a number")
	}
	if !symbol {
		violations = append(violations, "Password must contain non alphanumeric")
	}
	return violations
}

// RegisterPasswordValidation adds the password tag to validate.
func RegisterPasswordValidation(validate *validator.Validate) error {
	if validate == nil {
		return errors.New("validator must not be nil")
	}
	return validate.RegisterValidation(PasswordTag, func(fl validator.FieldLevel) bool {
		return len(PasswordViolations(fl.Field().String())) == 0
	})
}
