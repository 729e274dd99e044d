package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a random UUID v4 in canonical form. Artifact and request
// ids use it.
func NewID() string {
	return uuid.NewString()
}

// NewTraceID returns a random W3C trace id: 32 lowercase hex digits.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// CanonicalID parses s as a UUID in any of its accepted spellings and
// returns the canonical lowercase form.
func CanonicalID(s string) (string, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
