package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered person who can place notes in the space.
type User struct {
	ID        uuid.UUID `json:"id"`
	PublicKey string    `json:"public_key"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FriendlyName returns the name shown next to a user's notes and cursor.
func (u *User) FriendlyName() string {
	if u == nil {
		return ""
	}
	return FriendlyName(u.Name, u.Email)
}

// FriendlyName picks the trimmed display name, then the trimmed email, then "Anonymous".
func FriendlyName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if e := strings.TrimSpace(email); e != "" {
		return e
	}
	return "Anonymous"
}
