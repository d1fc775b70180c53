package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Matches(plaintext, hash string) bool
}

// BcryptVerifier verifies bcrypt hashes.
type BcryptVerifier struct{}

// Matches reports whether plaintext hashes to hash.
func (BcryptVerifier) Matches(plaintext, hash string) bool {
	return ComparePassword(hash, plaintext) == nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	if hashed == "" {
		return errors.New("empty password hash")
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
