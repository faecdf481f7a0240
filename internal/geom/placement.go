package geom

import "math"

const (
	// DefaultNoteDistance is used when no usable distance is requested.
	DefaultNoteDistance = 8.0
	// MinNoteHeight keeps notes above the floor.
	MinNoteHeight = 3.0
)

// Placement is where a new note goes and how it is turned.
type Placement struct {
	Position Vec3
	Yaw      float64
}

// ComputeNotePlacement places a note distance units ahead of the viewer on
// the horizontal plane. A NaN or infinite distance selects
// DefaultNoteDistance. The yaw turns the note's face back toward the viewer.
func ComputeNotePlacement(position, forward Vec3, distance float64) Placement {
	dir := forward.Flatten()
	if dir.LenSq() == 0 {
		dir = Forward
	}
	dir = dir.Normalize()

	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		distance = DefaultNoteDistance
	}

	target := position.Add(dir.Scale(distance))
	target.Y = math.Max(position.Y, MinNoteHeight)

	return Placement{
		Position: target,
		Yaw:      math.Atan2(-dir.X, -dir.Z),
	}
}
