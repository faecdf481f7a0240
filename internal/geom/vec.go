// Package geom holds the small amount of spatial math the space needs:
// vectors, note placement and identifier colouring.
package geom

import "math"

// Vec3 is a point or direction in world space. +y is up.
type Vec3 struct {
	X, Y, Z float64
}

// Forward is the default viewing direction.
var Forward = Vec3{0, 0, -1}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) LenSq() float64 { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

func (v Vec3) Len() float64 { return math.Sqrt(v.LenSq()) }

// Normalize returns the unit vector in the direction of v, or the zero
// vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Flatten projects v onto the horizontal plane.
func (v Vec3) Flatten() Vec3 { return Vec3{v.X, 0, v.Z} }

// YawToward returns the rotation about +y that turns an object at from so
// its +z axis points at target, ignoring height.
func YawToward(from, target Vec3) float64 {
	d := target.Sub(from)
	if d.X == 0 && d.Z == 0 {
		return 0
	}
	return math.Atan2(d.X, d.Z)
}

// Round returns x rounded to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
