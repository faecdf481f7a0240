// Package scene keeps the renderable entities of the space: note billboards
// and remote cursor indicators, each keyed by its stream identifier.
package scene

import (
	"sort"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
)

// Kind builds and maintains one family of entities for records of type R.
type Kind[R any, E any] interface {
	// Create allocates a fresh resource bundle.
	Create(id string, rec *R) E
	// Update applies rec to an existing bundle in place.
	Update(e E, rec *R)
	// Dispose releases every resource the bundle owns and detaches it.
	Dispose(e E)
	// Face turns the entity toward the observer.
	Face(e E, observer geom.Vec3)
}

// Entry is the bundle plus cached source record tracked for one identifier.
type Entry[R any, E any] struct {
	ID     string
	Entity E
	Record *R
}

// Registry maps identifiers to at most one entry each.
// It is not safe for concurrent use.
type Registry[R any, E any] struct {
	kind    Kind[R, E]
	entries map[string]*Entry[R, E]
}

// NewRegistry creates an empty registry for the given kind.
func NewRegistry[R any, E any](kind Kind[R, E]) *Registry[R, E] {
	return &Registry[R, E]{
		kind:    kind,
		entries: make(map[string]*Entry[R, E]),
	}
}

// Upsert creates the entry for id on first sighting and updates it in place
// afterwards. It reports whether a new entry was created.
func (r *Registry[R, E]) Upsert(id string, rec *R) bool {
	entry, ok := r.entries[id]
	if !ok {
		entry = &Entry[R, E]{ID: id, Entity: r.kind.Create(id, rec)}
		r.entries[id] = entry
	}
	r.kind.Update(entry.Entity, rec)
	entry.Record = rec
	return !ok
}

// Remove disposes the entry for id and forgets it. Unknown ids are ignored.
func (r *Registry[R, E]) Remove(id string) bool {
	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	r.kind.Dispose(entry.Entity)
	delete(r.entries, id)
	return true
}

// Get returns the entry for id.
func (r *Registry[R, E]) Get(id string) (*Entry[R, E], bool) {
	entry, ok := r.entries[id]
	return entry, ok
}

// Len returns the number of entries.
func (r *Registry[R, E]) Len() int {
	return len(r.entries)
}

// IDs returns the identifiers in sorted order.
func (r *Registry[R, E]) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each calls fn for every entry in identifier order.
func (r *Registry[R, E]) Each(fn func(*Entry[R, E])) {
	for _, id := range r.IDs() {
		fn(r.entries[id])
	}
}

// FaceObserver turns every entity toward the observer. It is the per-frame
// billboard pass and never touches cached records.
func (r *Registry[R, E]) FaceObserver(observer geom.Vec3) {
	for _, entry := range r.entries {
		r.kind.Face(entry.Entity, observer)
	}
}
