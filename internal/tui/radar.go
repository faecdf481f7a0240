package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/scene"
)

const (
	radarRange = 24.0 // world units from centre to top edge

	glyphViewer  = '@'
	glyphNote    = '■'
	glyphCursor  = '▲'
	glyphPending = '+'

	// Notes within this distance and angle are shown in full.
	facingRange = 20.0
	facingCone  = math.Pi / 4
)

type cell struct {
	ch    rune
	color string
}

// radar is a top-down view centred on the viewer with the heading up.
type radar struct {
	width, height int
	cells         [][]cell
	viewer        *Viewer
}

func newRadar(width, height int, v *Viewer) *radar {
	if width < 3 {
		width = 3
	}
	if height < 3 {
		height = 3
	}
	cells := make([][]cell, height)
	for i := range cells {
		cells[i] = make([]cell, width)
		for j := range cells[i] {
			cells[i][j] = cell{ch: '·'}
		}
	}
	return &radar{width: width, height: height, cells: cells, viewer: v}
}

// project maps a world position to a cell. Terminal cells are about twice
// as tall as they are wide, so x is stretched.
func (r *radar) project(p geom.Vec3) (row, col int, ok bool) {
	rel := p.Sub(r.viewer.Pos).Flatten()
	fwd := dot(rel, r.viewer.Forward())
	right := dot(rel, r.viewer.Right())

	cy := float64(r.height-1) / 2
	cx := float64(r.width-1) / 2
	scale := cy / radarRange

	row = int(math.Round(cy - fwd*scale))
	col = int(math.Round(cx + right*scale*2))
	if row < 0 || row >= r.height || col < 0 || col >= r.width {
		return 0, 0, false
	}
	return row, col, true
}

func (r *radar) plot(p geom.Vec3, ch rune, color string) {
	if row, col, ok := r.project(p); ok {
		r.cells[row][col] = cell{ch: ch, color: color}
	}
}

func (r *radar) String() string {
	var b strings.Builder
	for i, row := range r.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			if c.color == "" {
				b.WriteRune(c.ch)
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(geom.ToHex(c.color))).Render(string(c.ch)))
		}
	}
	return b.String()
}

// RenderRadar draws notes, remote cursors, the pending note placement and
// the viewer onto a width x height grid.
func RenderRadar(sc *scene.Scene, v *Viewer, pending *geom.Placement, width, height int) string {
	r := newRadar(width, height, v)

	sc.Messages.Each(func(e *scene.Entry[models.Message, *scene.Billboard]) {
		r.plot(e.Entity.Node.Position, glyphNote, noteColor(e.Entity))
	})
	sc.Cursors.Each(func(e *scene.Entry[models.Cursor, *scene.Indicator]) {
		if e.Entity.Group.Visible {
			r.plot(e.Entity.Group.Position, glyphCursor, e.Entity.Material.Color)
		}
	})
	if pending != nil {
		r.plot(pending.Position, glyphPending, geom.FallbackAccent)
	}
	r.plot(v.Pos, glyphViewer, "")

	return r.String()
}

// noteColor is the accent the billboard was drawn with.
func noteColor(b *scene.Billboard) string {
	if len(b.Texture.Lines) > 0 {
		return b.Texture.Lines[0].Color
	}
	return geom.FallbackAccent
}

// Facing returns the billboard the viewer is looking at: the nearest note
// within facingRange whose bearing is inside facingCone.
func Facing(sc *scene.Scene, v *Viewer) (*scene.Billboard, bool) {
	var (
		best     *scene.Billboard
		bestDist = math.Inf(1)
	)
	fwd := v.Forward()
	sc.Messages.Each(func(e *scene.Entry[models.Message, *scene.Billboard]) {
		rel := e.Entity.Node.Position.Sub(v.Pos).Flatten()
		d := rel.Len()
		if d == 0 || d > facingRange || d >= bestDist {
			return
		}
		if math.Acos(clamp(dot(rel.Scale(1/d), fwd), -1, 1)) > facingCone {
			return
		}
		best, bestDist = e.Entity, d
	})
	return best, best != nil
}

// RenderBillboard draws a billboard's texture as text.
func RenderBillboard(b *scene.Billboard, width int) string {
	lines := make([]string, 0, len(b.Texture.Lines))
	for i, l := range b.Texture.Lines {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(geom.ToHex(l.Color)))
		if i == 0 {
			style = style.Bold(true)
		}
		lines = append(lines, style.Render(l.Text))
	}
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(geom.ToHex(noteColor(b)))).
		Render(strings.Join(lines, "\n"))
}

func dot(a, b geom.Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
