package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/session"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/storage"
)

// ImportTools holds references needed by import tool handlers.
type ImportTools struct {
	Staging *storage.CatalogStore
	Session *session.Session
	Log     *slog.Logger
}

// --- Input types ---

type StageFactsInput struct {
	Facts []map[string]string `json:"facts" jsonschema:"Facts as property maps (e.g., {source, role, target})"`
}

type MatchFactsInput struct {
	Facts       []map[string]string `json:"facts,omitempty" jsonschema:"Facts to match inline; omit to match staged facts"`
	ClearStaged bool                `json:"clear_staged,omitempty" jsonschema:"Remove staged facts after a successful match"`
}

type ResetImportInput struct {
	SourceName string `json:"source_name,omitempty" jsonschema:"Property holding the source entity name (default source)"`
	RoleName   string `json:"role_name,omitempty" jsonschema:"Property holding the relation role (default role)"`
	TargetName string `json:"target_name,omitempty" jsonschema:"Property holding the target entity name (default target)"`
}

type matchResult struct {
	Matches []models.MatchRecord `json:"matches"`
	Summary importer.Summary     `json:"summary"`
}

// --- Handlers ---

func (t *ImportTools) StageFacts(ctx context.Context, _ *mcp.CallToolRequest, input StageFactsInput) (*mcp.CallToolResult, any, error) {
	if len(input.Facts) == 0 {
		return toolError("At least one fact is required"), nil, nil
	}
	staged, err := t.Staging.StageFacts(ctx, toFacts(input.Facts))
	if err != nil {
		return toolError("Failed to stage facts: %v", err), nil, nil
	}
	return toolText(fmt.Sprintf("Staged %d facts.", len(staged))), nil, nil
}

func (t *ImportTools) MatchFacts(ctx context.Context, _ *mcp.CallToolRequest, input MatchFactsInput) (*mcp.CallToolResult, any, error) {
	facts := toFacts(input.Facts)
	fromStaging := len(facts) == 0
	if fromStaging {
		staged, err := t.Staging.ListStagedFacts(ctx, 0)
		if err != nil {
			return toolError("Failed to load staged facts: %v", err), nil, nil
		}
		facts = staged
	}

	matches, summary, err := t.Session.Match(ctx, facts)
	if err != nil {
		return toolError("Match failed: %v", err), nil, nil
	}
	t.Log.InfoContext(ctx, "facts matched", "facts", len(facts), "matches", len(matches), "staged", fromStaging)

	if fromStaging && input.ClearStaged {
		if _, err := t.Staging.ClearStagedFacts(ctx); err != nil {
			return toolError("Matched but failed to clear staged facts: %v", err), nil, nil
		}
	}
	return toolJSON(matchResult{Matches: matches, Summary: summary})
}

func (t *ImportTools) ImportStats(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Session.Stats())
}

func (t *ImportTools) ResetImport(ctx context.Context, _ *mcp.CallToolRequest, input ResetImportInput) (*mcp.CallToolResult, any, error) {
	var fields *importer.FieldNames
	if input.SourceName != "" || input.RoleName != "" || input.TargetName != "" {
		fields = &importer.FieldNames{Source: input.SourceName, Role: input.RoleName, Target: input.TargetName}
	}
	t.Session.Reset(fields)
	t.Log.InfoContext(ctx, "import reset")
	return toolJSON(t.Session.Stats())
}

func toFacts(props []map[string]string) []models.Fact {
	facts := make([]models.Fact, 0, len(props))
	for _, p := range props {
		facts = append(facts, models.NewFact(p))
	}
	return facts
}
