package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

func TestDecodeSnapshot(t *testing.T) {
	snap := &models.Snapshot{
		Type:   "snapshot",
		Stream: models.StreamMessages,
		Entries: []models.SnapshotEntry{
			{ID: "a", Value: json.RawMessage(`{"text":"first","createdAt":1}`)},
			{ID: "b", Value: json.RawMessage(`null`)},
			{ID: "c", Value: json.RawMessage(`"not an object"`)},
			{ID: "d"},
			{ID: "e", Value: json.RawMessage(`{"text":"last"}`)},
		},
	}

	entries, err := Decode[models.Message](snap)
	if err == nil {
		t.Fatal("expected an error for the undecodable record")
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Record == nil || entries[0].Record.Text != "first" {
		t.Fatalf("entry a = %+v", entries[0])
	}
	for _, i := range []int{1, 2, 3} {
		if entries[i].Record != nil {
			t.Fatalf("entry %s should be absent", entries[i].ID)
		}
	}
	if entries[4].Record == nil || entries[4].Record.Text != "last" {
		t.Fatalf("entry e = %+v", entries[4])
	}
}

func TestDecodeThenApplyRemovesNulls(t *testing.T) {
	sink := newFakeSink()
	r := New[rec](sink)

	first := &models.Snapshot{Entries: []models.SnapshotEntry{
		{ID: "x", Value: json.RawMessage(`{}`)},
		{ID: "y", Value: json.RawMessage(`{}`)},
	}}
	entries, err := Decode[rec](first)
	if err != nil {
		t.Fatal(err)
	}
	r.Apply(entries)

	second := &models.Snapshot{Entries: []models.SnapshotEntry{
		{ID: "x", Value: json.RawMessage(`{}`)},
		{ID: "y", Value: json.RawMessage(`null`)},
	}}
	entries, _ = Decode[rec](second)
	res := r.Apply(entries)
	if len(res.Removed) != 1 || res.Removed[0] != "y" {
		t.Fatalf("removed = %v", res.Removed)
	}
	if sink.removes["y"] != 1 {
		t.Fatalf("y removed %d times", sink.removes["y"])
	}
}

func TestDecodeNil(t *testing.T) {
	entries, err := Decode[models.Cursor](nil)
	if err != nil || entries != nil {
		t.Fatalf("Decode(nil) = %v, %v", entries, err)
	}
}
