package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 14

// Verifier checks a plaintext password against a stored hash. The hashing
// algorithm is a pluggable capability; BcryptVerifier is the default.
type Verifier interface {
	Verify(plain, hash string) bool
}

// BcryptVerifier verifies bcrypt hashes.
type BcryptVerifier struct{}

func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

func (v *BcryptVerifier) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPassword hashes a plaintext password for storage. Used by seed tooling
// and tests; the service itself never stores passwords.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}
