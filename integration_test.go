package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/server"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/session"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/storage"
)

// setupIntegration creates a real MCP server with in-memory transport and returns a connected client session.
func setupIntegration(t *testing.T) *mcp.ClientSession {
	t.Helper()

	catalog, err := storage.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { catalog.Close() })

	log := slog.New(slog.DiscardHandler)
	sess := session.New(session.Config{
		Entities:   catalog,
		Relations:  catalog,
		FieldNames: importer.DefaultFieldNames(),
		Logger:     log,
	})
	srv := server.New(server.Deps{Catalog: catalog, Session: sess, Logger: log})

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

// callTool is a helper that calls a tool and returns the text content.
func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
	}
	return tc.Text
}

// callToolExpectError calls a tool and expects an error response (IsError=true).
func callToolExpectError(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): protocol error: %v", name, err)
	}
	tc := result.Content[0].(*mcp.TextContent)
	if !result.IsError {
		t.Fatalf("CallTool(%s): expected error but got success: %s", name, tc.Text)
	}
	return tc.Text
}

// seedCatalog creates Adam, Eve and the "is married to" relation type.
func seedCatalog(t *testing.T, cs *mcp.ClientSession) {
	t.Helper()
	callTool(t, cs, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{"name": "Adam", "kind": "person"},
			map[string]any{"name": "Eve", "kind": "person"},
		},
	})
	callTool(t, cs, "create_relation_types", map[string]any{
		"descriptions": []any{"is married to"},
	})
}

type matchResult struct {
	Matches []models.MatchRecord `json:"matches"`
	Summary importer.Summary     `json:"summary"`
}

type statsResult struct {
	FieldNames             importer.FieldNames `json:"field_names"`
	Runs                   int                 `json:"runs"`
	Summary                importer.Summary    `json:"summary"`
	Entities               map[string]lookup   `json:"entities"`
	RelationTypes          map[string]lookup   `json:"relation_types"`
	UnmatchedEntities      []string            `json:"unmatched_entities"`
	UnmatchedRelationTypes []string            `json:"unmatched_relation_types"`
}

type lookup struct {
	Count  int             `json:"count"`
	Object json.RawMessage `json:"object"`
}

func TestIntegration_ListTools(t *testing.T) {
	cs := setupIntegration(t)

	result, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	expectedTools := []string{
		"create_entities", "create_relation_types", "search_entities",
		"list_catalog", "delete_entities",
		"stage_facts", "match_facts", "import_stats", "reset_import",
	}

	toolNames := make(map[string]bool)
	for _, tool := range result.Tools {
		toolNames[tool.Name] = true
	}

	for _, name := range expectedTools {
		if !toolNames[name] {
			t.Errorf("Missing tool: %s", name)
		}
	}

	if len(result.Tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(result.Tools))
	}
}

func TestIntegration_MatchWorkflow(t *testing.T) {
	cs := setupIntegration(t)
	seedCatalog(t, cs)

	// Step 1: match one complete and one partial fact
	text := callTool(t, cs, "match_facts", map[string]any{
		"facts": []any{
			map[string]any{"source": "Adam", "role": "is married to", "target": "Eve"},
			map[string]any{"source": "Eve", "role": "president", "target": "USG"},
		},
	})
	var mr matchResult
	if err := json.Unmarshal([]byte(text), &mr); err != nil {
		t.Fatalf("parse match_facts: %v", err)
	}
	if len(mr.Matches) != 2 {
		t.Fatalf("expected 2 match records, got %d", len(mr.Matches))
	}
	first := mr.Matches[0]
	if first.Source == nil || first.Source.Name != "Adam" {
		t.Errorf("matches[0].source = %+v, want Adam", first.Source)
	}
	if first.RelationType == nil || first.RelationType.Description != "is married to" {
		t.Errorf("matches[0].relation_type = %+v, want is married to", first.RelationType)
	}
	if first.Target == nil || first.Target.Name != "Eve" {
		t.Errorf("matches[0].target = %+v, want Eve", first.Target)
	}
	second := mr.Matches[1]
	if second.Source == nil || second.Source.Name != "Eve" {
		t.Errorf("matches[1].source = %+v, want Eve", second.Source)
	}
	if second.RelationType != nil || second.Target != nil {
		t.Errorf("matches[1] should only resolve its source, got %+v", second)
	}

	// Step 2: import_stats reflects both facts
	text = callTool(t, cs, "import_stats", nil)
	var stats statsResult
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("parse import_stats: %v", err)
	}
	if stats.Runs != 1 {
		t.Errorf("runs = %d, want 1", stats.Runs)
	}
	if got := stats.Entities["Eve"].Count; got != 2 {
		t.Errorf("Eve count = %d, want 2 (target then source)", got)
	}
	if got := stats.Entities["USG"]; got.Count != 1 || string(got.Object) != "null" {
		t.Errorf("USG = %+v, want count 1 with null object", got)
	}
	if got := stats.RelationTypes["president"].Count; got != 1 {
		t.Errorf("president count = %d, want 1", got)
	}
	if len(stats.UnmatchedEntities) != 1 || stats.UnmatchedEntities[0] != "USG" {
		t.Errorf("unmatched entities = %v, want [USG]", stats.UnmatchedEntities)
	}
	if stats.Summary.Entities.Sightings != 4 {
		t.Errorf("entity sightings = %d, want 4", stats.Summary.Entities.Sightings)
	}

	// Step 3: a second batch accumulates
	callTool(t, cs, "match_facts", map[string]any{
		"facts": []any{map[string]any{"source": "Adam"}},
	})
	text = callTool(t, cs, "import_stats", nil)
	stats = statsResult{}
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("parse import_stats: %v", err)
	}
	if got := stats.Entities["Adam"].Count; got != 2 {
		t.Errorf("Adam count = %d, want 2", got)
	}
	if got := stats.Entities[""].Count; got != 1 {
		t.Errorf("empty-name count = %d, want 1", got)
	}
	if got := stats.RelationTypes[""].Count; got != 1 {
		t.Errorf("empty-role count = %d, want 1", got)
	}

	// Step 4: reset_import clears everything
	text = callTool(t, cs, "reset_import", nil)
	stats = statsResult{}
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("parse reset_import: %v", err)
	}
	if stats.Runs != 0 || len(stats.Entities) != 0 || len(stats.RelationTypes) != 0 {
		t.Errorf("reset should clear stats, got %+v", stats)
	}
}

func TestIntegration_StagedFacts(t *testing.T) {
	cs := setupIntegration(t)
	seedCatalog(t, cs)

	text := callTool(t, cs, "stage_facts", map[string]any{
		"facts": []any{
			map[string]any{"source": "Adam", "role": "is married to", "target": "Eve"},
			map[string]any{"source": "Cain", "role": "is married to", "target": "Eve"},
		},
	})
	if !strings.Contains(text, "Staged 2 facts") {
		t.Errorf("stage_facts = %q", text)
	}

	text = callTool(t, cs, "match_facts", map[string]any{"clear_staged": true})
	var mr matchResult
	if err := json.Unmarshal([]byte(text), &mr); err != nil {
		t.Fatalf("parse match_facts: %v", err)
	}
	if len(mr.Matches) != 2 {
		t.Fatalf("expected 2 match records, got %d", len(mr.Matches))
	}
	if mr.Summary.RelationTypes.Sightings != 2 || mr.Summary.RelationTypes.Distinct != 1 {
		t.Errorf("relation type summary = %+v", mr.Summary.RelationTypes)
	}
	if mr.Summary.Entities.Unmatched != 1 {
		t.Errorf("unmatched entities = %d, want 1 (Cain)", mr.Summary.Entities.Unmatched)
	}

	// Staging was cleared, so an empty match sees nothing new.
	text = callTool(t, cs, "match_facts", nil)
	mr = matchResult{}
	if err := json.Unmarshal([]byte(text), &mr); err != nil {
		t.Fatalf("parse match_facts: %v", err)
	}
	if len(mr.Matches) != 0 {
		t.Errorf("expected no match records after clearing staging, got %d", len(mr.Matches))
	}
}

func TestIntegration_ResetWithFieldNames(t *testing.T) {
	cs := setupIntegration(t)
	seedCatalog(t, cs)

	text := callTool(t, cs, "reset_import", map[string]any{
		"source_name": "Who",
		"role_name":   "What",
		"target_name": "To whom",
	})
	var stats statsResult
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("parse reset_import: %v", err)
	}
	if stats.FieldNames.Target != "To whom" {
		t.Errorf("target field = %q, want %q", stats.FieldNames.Target, "To whom")
	}

	text = callTool(t, cs, "match_facts", map[string]any{
		"facts": []any{
			map[string]any{"Who": "Adam", "What": "is married to", "To whom": "Eve"},
		},
	})
	var mr matchResult
	if err := json.Unmarshal([]byte(text), &mr); err != nil {
		t.Fatalf("parse match_facts: %v", err)
	}
	if mr.Summary.Entities.Matched != 2 || mr.Summary.RelationTypes.Matched != 1 {
		t.Errorf("summary = %+v, want everything matched", mr.Summary)
	}
}

func TestIntegration_CatalogTools(t *testing.T) {
	cs := setupIntegration(t)
	seedCatalog(t, cs)

	text := callTool(t, cs, "search_entities", map[string]any{"query": "Ad*"})
	var found []models.Entity
	if err := json.Unmarshal([]byte(text), &found); err != nil {
		t.Fatalf("parse search_entities: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Adam" {
		t.Errorf("search_entities(Ad*) = %+v, want [Adam]", found)
	}

	text = callTool(t, cs, "delete_entities", map[string]any{"names": []any{"Eve"}})
	if !strings.Contains(text, "Deleted 1 entities") {
		t.Errorf("delete_entities = %q", text)
	}

	text = callTool(t, cs, "list_catalog", nil)
	var listing struct {
		Entities      []models.Entity       `json:"entities"`
		RelationTypes []models.RelationType `json:"relation_types"`
	}
	if err := json.Unmarshal([]byte(text), &listing); err != nil {
		t.Fatalf("parse list_catalog: %v", err)
	}
	if len(listing.Entities) != 1 || listing.Entities[0].Name != "Adam" {
		t.Errorf("entities = %+v, want [Adam]", listing.Entities)
	}
	if len(listing.RelationTypes) != 1 {
		t.Errorf("relation types = %+v, want 1", listing.RelationTypes)
	}

	// A deleted entity no longer resolves.
	text = callTool(t, cs, "match_facts", map[string]any{
		"facts": []any{map[string]any{"source": "Adam", "role": "is married to", "target": "Eve"}},
	})
	var mr matchResult
	if err := json.Unmarshal([]byte(text), &mr); err != nil {
		t.Fatalf("parse match_facts: %v", err)
	}
	if mr.Matches[0].Target != nil {
		t.Errorf("deleted entity Eve should not resolve, got %+v", mr.Matches[0].Target)
	}
}

func TestIntegration_ErrorPaths(t *testing.T) {
	cs := setupIntegration(t)

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"create_entities", map[string]any{"entities": []any{}}, "At least one entity"},
		{"create_relation_types", map[string]any{"descriptions": []any{}}, "At least one description"},
		{"search_entities", map[string]any{"query": ""}, "Query is required"},
		{"stage_facts", map[string]any{"facts": []any{}}, "At least one fact"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			text := callToolExpectError(t, cs, tt.tool, tt.args)
			if !strings.Contains(text, tt.want) {
				t.Errorf("error = %q, want it to contain %q", text, tt.want)
			}
		})
	}

	seedCatalog(t, cs)
	text := callToolExpectError(t, cs, "create_entities", map[string]any{
		"entities": []any{map[string]any{"name": "Adam"}},
	})
	if !strings.Contains(text, "already exists") {
		t.Errorf("duplicate create_entities error = %q", text)
	}
}
