package scene

import (
	"math"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Indicator is the resource bundle of one remote cursor: a cone marker
// and a floating name label.
type Indicator struct {
	ID     string
	Group  *Node
	Marker *Node
	Label  *Node

	Geometry *Geometry
	Material *Material

	LabelGeometry *Geometry
	LabelMaterial *Material
	LabelTexture  *Texture
}

// CursorKind builds remote cursor indicators.
type CursorKind struct {
	graph *Graph
}

// NewCursorKind returns a kind that adds indicators to g.
func NewCursorKind(g *Graph) *CursorKind {
	return &CursorKind{graph: g}
}

func (k *CursorKind) Create(id string, c *models.Cursor) *Indicator {
	var color, name string
	if c != nil {
		color, name = c.Color, c.DisplayName
	}

	geo := k.graph.NewGeometry("cone", 0.8, 2.4)
	mat := k.graph.NewMaterial(geom.ResolveColor(color, id), 0.9, nil)
	marker := &Node{
		Name:     "marker",
		Position: geom.Vec3{Y: 1.2},
		Yaw:      math.Pi,
		Visible:  true,
		Geometry: geo,
		Material: mat,
	}

	tex := k.graph.NewTexture(256, 64)
	tex.Redraw([]TextLine{{Text: name, Color: "#ffffff"}})
	labelGeo := k.graph.NewGeometry("plane", 4, 1)
	labelMat := k.graph.NewMaterial("", 1, tex)
	label := &Node{
		Name:     "label",
		Position: geom.Vec3{Y: 2.8},
		Visible:  true,
		Order:    3,
		Geometry: labelGeo,
		Material: labelMat,
	}

	group := &Node{Name: "cursor:" + id}
	group.Add(marker)
	group.Add(label)
	k.graph.Add(group)

	return &Indicator{
		ID:            id,
		Group:         group,
		Marker:        marker,
		Label:         label,
		Geometry:      geo,
		Material:      mat,
		LabelGeometry: labelGeo,
		LabelMaterial: labelMat,
		LabelTexture:  tex,
	}
}

func (k *CursorKind) Update(ind *Indicator, c *models.Cursor) {
	if c == nil {
		return
	}
	if c.DisplayName != "" {
		ind.LabelTexture.Redraw([]TextLine{{Text: c.DisplayName, Color: "#ffffff"}})
	}
	ind.Material.Color = geom.ResolveColor(c.Color, ind.ID)
	if c.HasPosition() {
		ind.Group.Position = geom.Vec3{X: *c.X, Y: *c.Y, Z: *c.Z}
	}
	ind.Group.Visible = true
}

func (k *CursorKind) Dispose(ind *Indicator) {
	k.graph.Remove(ind.Group)
	ind.Geometry.Dispose()
	ind.Material.Dispose()
	ind.LabelGeometry.Dispose()
	ind.LabelMaterial.Dispose()
	ind.LabelTexture.Dispose()
}

func (k *CursorKind) Face(ind *Indicator, observer geom.Vec3) {
	ind.Label.Yaw = geom.YawToward(ind.Label.WorldPosition(), observer)
}
