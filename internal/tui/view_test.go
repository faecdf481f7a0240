package tui

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/scene"
)

func TestViewerHeading(t *testing.T) {
	v := NewViewer()
	if f := v.Forward(); math.Abs(f.Z+1) > 1e-9 || math.Abs(f.X) > 1e-9 {
		t.Fatalf("initial forward = %+v", f)
	}

	v.Turn(6) // a quarter turn right
	if f := v.Forward(); math.Abs(f.X-1) > 1e-9 {
		t.Fatalf("forward after right turn = %+v", f)
	}

	v.Move(2, 0)
	if math.Abs(v.Pos.X-2) > 1e-9 || math.Abs(v.Pos.Z) > 1e-9 {
		t.Fatalf("position = %+v", v.Pos)
	}
	if v.Pos.Y != eyeHeight {
		t.Fatalf("height changed: %v", v.Pos.Y)
	}
}

func TestTimelineOrdering(t *testing.T) {
	tl := NewTimeline(time.UTC)
	a := &models.Message{Text: "a"}
	b := &models.Message{Text: "b"}
	c := &models.Message{Text: "c"}

	tl.Place("a", a, 0)
	tl.Place("b", b, 1)
	tl.Place("c", c, 1)
	if got := strings.Join(tl.IDs(), ","); got != "a,c,b" {
		t.Fatalf("order = %s", got)
	}

	tl.Drop("c")
	tl.Place("b", b, 0)
	tl.Place("a", a, 1)
	if got := strings.Join(tl.IDs(), ","); got != "b,a" {
		t.Fatalf("order after move = %s", got)
	}
}

func TestTimelineLine(t *testing.T) {
	tl := NewTimeline(time.UTC)
	long := strings.Repeat("é", 200)
	tl.Place("x", &models.Message{Text: long, CreatedAt: time.Date(2024, 1, 2, 9, 5, 0, 0, time.UTC).UnixMilli()}, 0)
	tl.Place("y", &models.Message{Text: "new"}, 1)

	out := tl.Render()
	if !strings.Contains(out, "09:05") {
		t.Fatalf("missing time: %q", out)
	}
	if !strings.Contains(out, "Pending...") {
		t.Fatalf("missing pending marker: %q", out)
	}
	if !strings.Contains(out, "Anonymous") {
		t.Fatalf("missing default author: %q", out)
	}
	if strings.Contains(out, strings.Repeat("é", 161)) {
		t.Fatal("text not truncated to 160 characters")
	}
}

func TestRadarPlacesNoteAhead(t *testing.T) {
	sc := scene.New(scene.Viewport{Width: 80, Height: 24})
	sc.Messages.Upsert("m", &models.Message{Text: "hi", Position: models.NewPoint(0, 3, -12)})
	v := NewViewer()

	out := RenderRadar(sc, v, nil, 21, 11)
	rows := strings.Split(out, "\n")
	if len(rows) != 11 {
		t.Fatalf("rows = %d", len(rows))
	}
	if !strings.ContainsRune(rows[5], glyphViewer) {
		t.Fatalf("viewer not in centre row: %q", rows[5])
	}
	noteRow := -1
	for i, r := range rows {
		if strings.ContainsRune(r, glyphNote) {
			noteRow = i
		}
	}
	if noteRow < 0 || noteRow >= 5 {
		t.Fatalf("note should be above the viewer, found at row %d", noteRow)
	}
}

func TestFacing(t *testing.T) {
	sc := scene.New(scene.Viewport{Width: 80, Height: 24})
	sc.Messages.Upsert("ahead", &models.Message{Text: "ahead", Position: models.NewPoint(0, 3, -5)})
	sc.Messages.Upsert("behind", &models.Message{Text: "behind", Position: models.NewPoint(0, 3, 5)})
	v := NewViewer()

	b, ok := Facing(sc, v)
	if !ok {
		t.Fatal("nothing faced")
	}
	if b.Node.Name != "message:ahead" {
		t.Fatalf("faced %s", b.Node.Name)
	}

	v.Turn(12) // half turn
	b, _ = Facing(sc, v)
	if b == nil || b.Node.Name != "message:behind" {
		t.Fatal("expected the other note after turning around")
	}

	v.Pos = geom.Vec3{X: 100, Y: eyeHeight}
	if _, ok := Facing(sc, v); ok {
		t.Fatal("far notes should not be faced")
	}
}
