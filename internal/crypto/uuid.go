package crypto

import (
	"github.com/google/uuid"
)

// NewUUIDv7 generates a time-ordered UUID v7 for user records.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// IsUUIDv7 reports whether s parses as a version 7 UUID.
func IsUUIDv7(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 7
}
