package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// records lists the stream records and API bodies, keyed by output name.
var records = []struct {
	name        string
	value       interface{}
	title       string
	description string
}{
	{"message", &models.Message{}, "Note", "Record of the messages stream, keyed by note id."},
	{"cursor", &models.Cursor{}, "Cursor", "Record of the cursors stream, keyed by client session id."},
	{"snapshot", &models.Snapshot{}, "Snapshot", "Full state of one stream pushed over the websocket feed."},
	{"user", &models.User{}, "User", "Registered user profile."},
	{"register_request", &models.RegisterRequest{}, "RegisterRequest", "Body of POST /register."},
	{"post_message_request", &models.PostMessageRequest{}, "PostMessageRequest", "Body of POST /messages."},
	{"search_response", &models.SearchResponse{}, "SearchResponse", "Result of GET /find."},
	{"stats_response", &models.StatsResponse{}, "StatsResponse", "Result of GET /stats."},
	{"health_response", &models.HealthResponse{}, "HealthResponse", "Result of GET /health."},
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schemas (stdout when empty)")
	flag.Parse()

	schemas := buildSchemas()

	if outPath == "" {
		if err := encode(os.Stdout, schemas); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := writeSchemas(outPath, schemas); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	out := make(map[string]*jsonschema.Schema, len(records))
	for _, r := range records {
		schema := reflector.Reflect(r.value)
		schema.Title = r.title
		schema.Description = r.description
		out[r.name] = schema
	}
	return out
}

func encode(w io.Writer, schemas map[string]*jsonschema.Schema) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(schemas)
}

func writeSchemas(outPath string, schemas map[string]*jsonschema.Schema) error {
	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
