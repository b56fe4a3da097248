package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// SessionIDLength is the number of random bytes in a session ID (256 bits).
const SessionIDLength = 32

// GenerateSessionID returns a base64 URL-encoded string of 32 random bytes.
// It is safe in cookies without further encoding.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// NewID returns a random UUID for users and history items.
func NewID() string {
	return uuid.NewString()
}

// NewCorrelationID returns a short ID that ties together the log lines of one
// generation. It is not a secret.
func NewCorrelationID() string {
	id := uuid.New()
	return id.String()[:8]
}
