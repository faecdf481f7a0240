package models

import "encoding/json"

// Stream names.
const (
	StreamMessages = "messages"
	StreamCursors  = "cursors"
)

// SnapshotEntry is one keyed record of a stream. Value is null when the
// record is absent.
type SnapshotEntry struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// Snapshot is the full current state of one stream.
type Snapshot struct {
	Type      string          `json:"type"` // always "snapshot"
	Stream    string          `json:"stream"`
	Entries   []SnapshotEntry `json:"entries"`
	Timestamp int64           `json:"ts"`
}
