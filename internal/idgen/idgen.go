// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// SessionPrefix is prepended to verification session IDs.
var SessionPrefix = "sess-"

// VerificationPrefix is prepended to single-verification request IDs.
var VerificationPrefix = "sv-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// NewSessionID returns a new unique session ID.
func NewSessionID() (string, error) {
	return GenerateWithPrefix(SessionPrefix)
}

// NewVerificationID returns a new unique verification request ID.
func NewVerificationID() (string, error) {
	return GenerateWithPrefix(VerificationPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
