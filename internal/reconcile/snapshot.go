package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Decode turns a wire snapshot into entries, keeping stream order. A null
// value becomes an absent record. A value that does not decode is also
// treated as absent and reported in the returned error, which lists every
// bad identifier; the entries are usable either way.
func Decode[R any](snap *models.Snapshot) ([]Entry[R], error) {
	if snap == nil {
		return nil, nil
	}

	entries := make([]Entry[R], 0, len(snap.Entries))
	var bad []string
	for _, e := range snap.Entries {
		entry := Entry[R]{ID: e.ID}
		raw := bytes.TrimSpace(e.Value)
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			var rec R
			if err := json.Unmarshal(raw, &rec); err != nil {
				bad = append(bad, e.ID)
			} else {
				entry.Record = &rec
			}
		}
		entries = append(entries, entry)
	}

	if len(bad) > 0 {
		return entries, fmt.Errorf("%s: undecodable records %v", snap.Stream, bad)
	}
	return entries, nil
}
