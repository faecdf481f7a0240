package tui

import (
	"math"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
)

const (
	eyeHeight = 1.7
	moveStep  = 1.0
	turnStep  = math.Pi / 12
)

// Viewer is the local observer: a position on the floor plane and a
// heading. Heading 0 looks down -z.
type Viewer struct {
	Pos     geom.Vec3
	Heading float64
}

// NewViewer returns a viewer at the origin at eye height, looking down -z.
func NewViewer() *Viewer {
	return &Viewer{Pos: geom.Vec3{Y: eyeHeight}}
}

func (v *Viewer) Position() geom.Vec3 { return v.Pos }

// Forward is the unit viewing direction.
func (v *Viewer) Forward() geom.Vec3 {
	return geom.Vec3{X: -math.Sin(v.Heading), Z: -math.Cos(v.Heading)}
}

// Right is the unit direction to the viewer's right.
func (v *Viewer) Right() geom.Vec3 {
	return geom.Vec3{X: math.Cos(v.Heading), Z: -math.Sin(v.Heading)}
}

// Move steps forward and right by the given number of steps.
func (v *Viewer) Move(forward, right float64) {
	v.Pos = v.Pos.Add(v.Forward().Scale(forward * moveStep)).Add(v.Right().Scale(right * moveStep))
}

// Turn rotates the heading; positive turns right.
func (v *Viewer) Turn(steps float64) {
	v.Heading = math.Mod(v.Heading-steps*turnStep, 2*math.Pi)
}
