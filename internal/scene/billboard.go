package scene

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

const (
	billboardWidth   = 12.0
	billboardHeight  = 6.0
	canvasWidth      = 512
	canvasHeight     = 256
	billboardColumns = 27 // 464px of 28px monospace

	legacySpread  = 160.0
	legacyHeight  = 3.5
	defaultHeight = 3.0
)

// Viewport is the size of the surface, used to interpret legacy screen
// coordinates.
type Viewport struct {
	Width  float64
	Height float64
}

// Billboard is the resource bundle of one note.
type Billboard struct {
	Node     *Node
	Geometry *Geometry
	Material *Material
	Texture  *Texture
}

// MessageKind builds note billboards.
type MessageKind struct {
	graph    *Graph
	viewport Viewport
}

// NewMessageKind returns a kind that adds billboards to g.
func NewMessageKind(g *Graph, vp Viewport) *MessageKind {
	return &MessageKind{graph: g, viewport: vp}
}

// SetViewport changes the viewport used for legacy positions. Existing
// billboards are not moved; use Scene.Resize for that.
func (k *MessageKind) SetViewport(vp Viewport) {
	k.viewport = vp
}

func (k *MessageKind) Create(id string, _ *models.Message) *Billboard {
	tex := k.graph.NewTexture(canvasWidth, canvasHeight)
	mat := k.graph.NewMaterial("", 1, tex)
	geo := k.graph.NewGeometry("plane", billboardWidth, billboardHeight)

	node := &Node{
		Name:     "message:" + id,
		Position: geom.Vec3{Y: 4},
		Visible:  true,
		Order:    2,
		Geometry: geo,
		Material: mat,
	}
	k.graph.Add(node)

	return &Billboard{Node: node, Geometry: geo, Material: mat, Texture: tex}
}

func (k *MessageKind) Update(b *Billboard, m *models.Message) {
	if m == nil {
		return
	}
	b.Texture.Redraw(drawMessage(m))
	k.place(b, m)
}

func (k *MessageKind) place(b *Billboard, m *models.Message) {
	b.Node.Position = ResolvePosition(m, k.viewport)
	b.Node.Yaw = m.Yaw()
}

func (k *MessageKind) Dispose(b *Billboard) {
	k.graph.Remove(b.Node)
	b.Geometry.Dispose()
	b.Material.Dispose()
	b.Texture.Dispose()
}

func (k *MessageKind) Face(b *Billboard, observer geom.Vec3) {
	b.Node.Yaw = geom.YawToward(b.Node.Position, observer)
}

// ResolvePosition picks where a note is drawn: its explicit position when
// complete, else the legacy screen-space derivation, else (0, 3, 0).
func ResolvePosition(m *models.Message, vp Viewport) geom.Vec3 {
	if m == nil {
		return geom.Vec3{Y: defaultHeight}
	}
	if p := m.Position; p.Complete() {
		return geom.Vec3{X: *p.X, Y: *p.Y, Z: *p.Z}
	}
	if pos, ok := LegacyPosition(m.LegacyX, m.LegacyY, vp); ok {
		return pos
	}
	return geom.Vec3{Y: defaultHeight}
}

// LegacyPosition maps old screen-space coordinates onto the floor around
// the origin. Only records written before notes carried a world position
// have these; the path may be unreachable for current data.
func LegacyPosition(x, y *float64, vp Viewport) (geom.Vec3, bool) {
	if x == nil && y == nil {
		return geom.Vec3{}, false
	}

	width, height := vp.Width, vp.Height
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	var nx, ny float64
	if x != nil {
		nx = *x/width - 0.5
	}
	if y != nil {
		ny = *y/height - 0.5
	}

	return geom.Vec3{
		X: nx * legacySpread,
		Y: legacyHeight,
		Z: -ny * legacySpread,
	}, true
}

func drawMessage(m *models.Message) []TextLine {
	author := m.Author
	if author == "" {
		author = "Anonymous"
	}
	accent := m.Accent
	if accent == "" {
		accent = geom.FallbackAccent
	}

	lines := []TextLine{{Text: author, Color: accent}}
	for _, l := range WrapText(m.Text, billboardColumns) {
		lines = append(lines, TextLine{Text: l, Color: "#ffffff"})
	}
	return lines
}

// WrapText breaks text into lines no wider than width display columns,
// splitting on whitespace. A single word wider than width gets its own line.
func WrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for i, w := range words {
		test := w
		if line != "" {
			test = line + " " + w
		}
		if runewidth.StringWidth(test) > width && i > 0 && line != "" {
			lines = append(lines, line)
			line = w
			continue
		}
		line = test
	}
	return append(lines, line)
}
