package models

// Point is a spatial position whose components may each be missing on the wire.
type Point struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
}

// Complete reports whether all three components are present.
func (p *Point) Complete() bool {
	return p != nil && p.X != nil && p.Y != nil && p.Z != nil
}

// NewPoint returns a fully populated Point.
func NewPoint(x, y, z float64) *Point {
	return &Point{X: &x, Y: &y, Z: &z}
}

// Message is a note record in the messages stream.
// The identifier is the stream key and is not part of the record.
type Message struct {
	Text        string   `json:"text"`
	CreatedAt   int64    `json:"createdAt,omitempty"` // Unix ms, server-assigned
	UID         string   `json:"uid,omitempty"`
	Author      string   `json:"author,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Accent      string   `json:"accent,omitempty"`
	Position    *Point   `json:"position,omitempty"`
	RotationY   *float64 `json:"rotationY,omitempty"`

	// Screen-space coordinates written by an older client format.
	LegacyX *float64 `json:"x,omitempty"`
	LegacyY *float64 `json:"y,omitempty"`
}

// Yaw returns the note rotation, defaulting to 0.
func (m *Message) Yaw() float64 {
	if m == nil || m.RotationY == nil {
		return 0
	}
	return *m.RotationY
}
