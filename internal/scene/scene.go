package scene

import (
	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// MessageRegistry holds note billboards keyed by message id.
type MessageRegistry = Registry[models.Message, *Billboard]

// CursorRegistry holds remote indicators keyed by client id.
type CursorRegistry = Registry[models.Cursor, *Indicator]

// Scene is built once at startup and handed to whatever feeds it.
type Scene struct {
	Graph    *Graph
	Messages *MessageRegistry
	Cursors  *CursorRegistry

	messageKind *MessageKind
}

// New creates an empty scene for a surface of the given size.
func New(vp Viewport) *Scene {
	g := NewGraph()
	mk := NewMessageKind(g, vp)
	return &Scene{
		Graph:       g,
		Messages:    NewRegistry[models.Message, *Billboard](mk),
		Cursors:     NewRegistry[models.Cursor, *Indicator](NewCursorKind(g)),
		messageKind: mk,
	}
}

// Resize records the new viewport and re-places every billboard, since
// legacy positions depend on it.
func (s *Scene) Resize(vp Viewport) {
	s.messageKind.SetViewport(vp)
	s.Messages.Each(func(e *Entry[models.Message, *Billboard]) {
		s.messageKind.place(e.Entity, e.Record)
	})
}

// Frame runs the per-frame pass: every billboard and label faces the observer.
func (s *Scene) Frame(observer geom.Vec3) {
	s.Messages.FaceObserver(observer)
	s.Cursors.FaceObserver(observer)
}
