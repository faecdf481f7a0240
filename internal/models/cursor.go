package models

// Cursor is a client's published live position and heading.
// The identifier is the per-session client id.
type Cursor struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Z           *float64 `json:"z,omitempty"`
	DirX        float64  `json:"dirX"`
	DirY        float64  `json:"dirY"`
	DirZ        float64  `json:"dirZ"`
	DisplayName string   `json:"displayName,omitempty"`
	Color       string   `json:"color,omitempty"`
	UID         string   `json:"uid,omitempty"`
	UpdatedAt   int64    `json:"updatedAt"` // Unix ms
}

// HasPosition reports whether x, y and z are all present.
func (c *Cursor) HasPosition() bool {
	return c != nil && c.X != nil && c.Y != nil && c.Z != nil
}
