// Package reconcile turns full-state stream snapshots into the minimal set
// of upserts and removals against a keyed sink.
package reconcile

// Entry is one (identifier, record) pair of a snapshot. A nil Record means
// the value is absent.
type Entry[R any] struct {
	ID     string
	Record *R
}

// Sink receives reconciled changes. scene.Registry implements it.
type Sink[R any] interface {
	Upsert(id string, rec *R) bool
	Remove(id string) bool
}

// OrderedView is a secondary view that depends on stream order, such as
// a timeline.
type OrderedView[R any] interface {
	Place(id string, rec *R, index int)
	Drop(id string)
}

// Result describes what one Apply did.
type Result struct {
	Created []string
	Updated []string
	Removed []string
}

// Changed reports whether Apply created or removed anything.
func (r Result) Changed() bool {
	return len(r.Created) > 0 || len(r.Removed) > 0
}

// Reconciler remembers which identifiers the last snapshot contained.
// It is not safe for concurrent use: snapshots of one stream must be
// applied one at a time.
type Reconciler[R any] struct {
	sink  Sink[R]
	view  OrderedView[R]
	skip  func(id string, rec *R) bool
	known map[string]struct{}
}

// Option configures a Reconciler.
type Option[R any] func(*Reconciler[R])

// WithOrderedView reflects every snapshot into v in stream order.
func WithOrderedView[R any](v OrderedView[R]) Option[R] {
	return func(r *Reconciler[R]) { r.view = v }
}

// WithSkip ignores entries for which fn returns true, as if absent.
func WithSkip[R any](fn func(id string, rec *R) bool) Option[R] {
	return func(r *Reconciler[R]) { r.skip = fn }
}

// New creates a Reconciler that knows no identifiers yet.
func New[R any](sink Sink[R], opts ...Option[R]) *Reconciler[R] {
	r := &Reconciler[R]{
		sink:  sink,
		known: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply reconciles a full snapshot. Every present entry is upserted, in
// snapshot order; every previously known identifier that is now absent is
// removed exactly once.
func (r *Reconciler[R]) Apply(entries []Entry[R]) Result {
	var res Result
	seen := make(map[string]struct{}, len(entries))
	present := make([]Entry[R], 0, len(entries))

	for _, e := range entries {
		if e.ID == "" || e.Record == nil {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		if r.skip != nil && r.skip(e.ID, e.Record) {
			continue
		}
		seen[e.ID] = struct{}{}
		present = append(present, e)

		if r.sink.Upsert(e.ID, e.Record) {
			res.Created = append(res.Created, e.ID)
		} else {
			res.Updated = append(res.Updated, e.ID)
		}
	}

	if r.view != nil {
		for i, e := range present {
			r.view.Place(e.ID, e.Record, i)
		}
	}

	for id := range r.known {
		if _, ok := seen[id]; ok {
			continue
		}
		r.sink.Remove(id)
		if r.view != nil {
			r.view.Drop(id)
		}
		res.Removed = append(res.Removed, id)
	}

	r.known = seen
	return res
}

// Known reports whether id was present in the last snapshot.
func (r *Reconciler[R]) Known(id string) bool {
	_, ok := r.known[id]
	return ok
}

// Reset forgets every identifier and removes them from the sink, as if an
// empty snapshot had arrived.
func (r *Reconciler[R]) Reset() Result {
	return r.Apply(nil)
}
