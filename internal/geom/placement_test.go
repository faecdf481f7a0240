package geom

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < epsilon }

func TestPlacementStraightAhead(t *testing.T) {
	p := ComputeNotePlacement(Vec3{}, Vec3{0, 0, -1}, 8)

	if !near(p.Position.X, 0) || !near(p.Position.Z, -8) {
		t.Fatalf("expected (0, y, -8), got %+v", p.Position)
	}
	if p.Position.Y < MinNoteHeight {
		t.Fatalf("expected y >= %v, got %v", MinNoteHeight, p.Position.Y)
	}
	if !near(p.Yaw, 0) {
		t.Fatalf("expected yaw 0, got %v", p.Yaw)
	}
}

func TestPlacementDefaultsDistance(t *testing.T) {
	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		p := ComputeNotePlacement(Vec3{1, 10, 1}, Vec3{1, 0, 0}, d)
		if !near(p.Position.X, 1+DefaultNoteDistance) || !near(p.Position.Z, 1) {
			t.Fatalf("distance %v: got %+v", d, p.Position)
		}
		if !near(p.Position.Y, 10) {
			t.Fatalf("expected viewer height kept above minimum, got %v", p.Position.Y)
		}
	}
}

func TestPlacementZeroDistance(t *testing.T) {
	p := ComputeNotePlacement(Vec3{2, 0, 3}, Vec3{0, 0, -1}, 0)
	if !near(p.Position.X, 2) || !near(p.Position.Z, 3) || !near(p.Position.Y, MinNoteHeight) {
		t.Fatalf("got %+v", p.Position)
	}
}

func TestPlacementFlattensDirection(t *testing.T) {
	// Looking steeply down still places the note on the horizontal plane.
	p := ComputeNotePlacement(Vec3{}, Vec3{0, -0.9, -0.1}, 8)
	if !near(p.Position.Z, -8) || !near(p.Position.X, 0) {
		t.Fatalf("got %+v", p.Position)
	}
}

func TestPlacementVerticalForwardFallsBack(t *testing.T) {
	p := ComputeNotePlacement(Vec3{}, Vec3{0, 1, 0}, 4)
	if !near(p.Position.Z, -4) || !near(p.Yaw, 0) {
		t.Fatalf("expected fallback to -z, got %+v yaw %v", p.Position, p.Yaw)
	}
}

func TestPlacementYawFacesViewer(t *testing.T) {
	viewer := Vec3{0, 0, 0}
	p := ComputeNotePlacement(viewer, Vec3{1, 0, 0}, 8)

	// The note's +z axis, rotated by yaw, must point back at the viewer.
	face := Vec3{math.Sin(p.Yaw), 0, math.Cos(p.Yaw)}
	back := viewer.Sub(p.Position).Flatten().Normalize()
	if !near(face.X, back.X) || !near(face.Z, back.Z) {
		t.Fatalf("note faces %+v, viewer is along %+v", face, back)
	}
	if !near(p.Yaw, YawToward(p.Position, viewer)) {
		t.Fatalf("yaw %v disagrees with YawToward %v", p.Yaw, YawToward(p.Position, viewer))
	}
}

func TestRound(t *testing.T) {
	if got := Round(1.23456, 3); got != 1.235 {
		t.Fatalf("got %v", got)
	}
	if got := Round(-0.00004, 4); got != 0 {
		t.Fatalf("got %v", got)
	}
}
