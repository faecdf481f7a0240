package scene

import "github.com/glaseagle/3DAuth-FireStore/internal/geom"

// Graph is the in-memory scene the surface renders from. It counts live
// resources so that anything allocated and never disposed shows up.
type Graph struct {
	roots []*Node
	live  int
}

// NewGraph returns an empty scene graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Node is a positioned object. Children are positioned relative to it.
type Node struct {
	Name     string
	Position geom.Vec3
	Yaw      float64
	Visible  bool
	Order    int // draw order hint

	Geometry *Geometry
	Material *Material
	Children []*Node

	parent *Node
}

// Add attaches child to n.
func (n *Node) Add(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// WorldPosition returns the node position with all parent offsets applied.
// Parent rotation is not applied to child offsets; every child offset used
// here is vertical.
func (n *Node) WorldPosition() geom.Vec3 {
	p := n.Position
	for a := n.parent; a != nil; a = a.parent {
		p = p.Add(a.Position)
	}
	return p
}

// Add puts a root node into the scene.
func (g *Graph) Add(n *Node) {
	g.roots = append(g.roots, n)
}

// Remove takes a root node out of the scene. Resources are not disposed.
func (g *Graph) Remove(n *Node) {
	for i, r := range g.roots {
		if r == n {
			g.roots = append(g.roots[:i], g.roots[i+1:]...)
			return
		}
	}
}

// Roots returns the top level nodes in insertion order.
func (g *Graph) Roots() []*Node {
	return g.roots
}

// LiveResources is the number of allocated, not yet disposed resources.
func (g *Graph) LiveResources() int {
	return g.live
}

type resource struct {
	graph    *Graph
	disposed bool
}

func (g *Graph) track() resource {
	g.live++
	return resource{graph: g}
}

// Dispose releases the resource. Disposing twice is a no-op.
func (r *resource) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.graph.live--
}

// Disposed reports whether Dispose has been called.
func (r *resource) Disposed() bool {
	return r.disposed
}

// Geometry is a shape with its extent in world units.
type Geometry struct {
	resource
	Shape  string
	Width  float64
	Height float64
}

// NewGeometry allocates a geometry.
func (g *Graph) NewGeometry(shape string, width, height float64) *Geometry {
	return &Geometry{resource: g.track(), Shape: shape, Width: width, Height: height}
}

// Material is the surface appearance of a node.
type Material struct {
	resource
	Color   string
	Opacity float64
	Map     *Texture
}

// NewMaterial allocates a material, optionally mapped with a texture.
func (g *Graph) NewMaterial(color string, opacity float64, tex *Texture) *Material {
	return &Material{resource: g.track(), Color: color, Opacity: opacity, Map: tex}
}

// TextLine is one row of text drawn onto a texture.
type TextLine struct {
	Text  string
	Color string
}

// Texture is a drawable canvas. Version increases on every redraw.
type Texture struct {
	resource
	Width   int
	Height  int
	Lines   []TextLine
	Version int
}

// NewTexture allocates a blank texture of the given pixel size.
func (g *Graph) NewTexture(width, height int) *Texture {
	return &Texture{resource: g.track(), Width: width, Height: height}
}

// Redraw clears the texture and draws lines onto it.
func (t *Texture) Redraw(lines []TextLine) {
	t.Lines = append(t.Lines[:0], lines...)
	t.Version++
}
