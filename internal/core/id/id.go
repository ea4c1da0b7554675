// Package id provides UUIDv7 identifiers for all ledger entities.
// Time-ordered UUIDs sort naturally by creation time, which keeps
// movement scans in rough chronological order without extra indexes.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type used across all entities.
type ID = uuid.UUID

// New generates a UUIDv7 (RFC 9562).
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// V7 generation can only fail on entropy exhaustion; fall back to V4.
		return uuid.New()
	}
	return id
}

// Parse converts a string to an ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to an ID, panicking on error.
// Intended for constants and tests only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
