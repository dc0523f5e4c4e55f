package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"telehealth-backend/pkg/constants"
)

// Hash hashes a plaintext password with bcrypt
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a bcrypt hash against a plaintext candidate
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Validate checks minimum password requirements
func Validate(plain string) error {
	if len(plain) < constants.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", constants.MinPasswordLength)
	}
	// bcrypt silently truncates beyond 72 bytes
	if len(plain) > 72 {
		return fmt.Errorf("password must be at most 72 characters")
	}
	return nil
}
