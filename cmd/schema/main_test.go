package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteSchemas(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "schema.json")
	if err := writeSchemas(out, buildSchemas()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"message", "cursor", "snapshot", "user"} {
		if _, ok := doc[name]; !ok {
			t.Errorf("missing schema %q", name)
		}
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
