// Package auth provides account registration, login sessions and the
// middleware guarding the studio API.
// This file contains password hashing.
package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Password hashing configuration constants
const (
	// DefaultCost is the bcrypt cost factor for password hashing.
	// At cost 12, hashing takes ~250ms on modern hardware.
	DefaultCost = 12

	// MinPasswordLength is counted in characters, not bytes.
	MinPasswordLength = 8

	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

var (
	// ErrEmptyPassword is returned when attempting to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordMismatch is returned when password verification fails.
	// This error intentionally does not reveal whether the hash was valid.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrInvalidHash is returned when the hash format is invalid.
	ErrInvalidHash = errors.New("invalid password hash format")

	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
)

// ValidatePassword checks a new password against the length rules.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrEmptyPassword
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword creates a bcrypt hash at the given cost. Costs outside
// bcrypt's range fall back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a bcrypt hash in
// constant time. It returns nil if they match, ErrPasswordMismatch if not.
func VerifyPassword(password, hash string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if hash == "" {
		return ErrInvalidHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		// Don't expose internal bcrypt errors - they could leak info
		return ErrPasswordMismatch
	}
	return nil
}

// NeedsRehash reports whether hash was created below targetCost.
func NeedsRehash(hash string, targetCost int) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < targetCost
}
