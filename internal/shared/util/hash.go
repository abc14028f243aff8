package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// UnknownOrigin is hashed in place of an empty network origin.
const UnknownOrigin = "unknown-origin"

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashOrigin returns the SHA-256 hex digest of a network origin. The raw
// address is never stored.
func HashOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = UnknownOrigin
	}
	return HashUserKey(origin)
}
