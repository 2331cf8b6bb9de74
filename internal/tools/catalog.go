package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/storage"
)

// CatalogTools holds references needed by catalog tool handlers.
type CatalogTools struct {
	Catalog *storage.CatalogStore
	Log     *slog.Logger
}

// --- Input types ---

type CreateEntitiesInput struct {
	Entities []EntityInput `json:"entities" jsonschema:"Array of canonical entities to create"`
}

type EntityInput struct {
	Name string `json:"name" jsonschema:"Exact entity name facts will be matched against"`
	Kind string `json:"kind,omitempty" jsonschema:"Entity kind (e.g., person, organization)"`
}

type CreateRelationTypesInput struct {
	Descriptions []string `json:"descriptions" jsonschema:"Relation type descriptions (e.g., is married to)"`
}

type SearchEntitiesInput struct {
	Query string `json:"query" jsonschema:"Search query (supports FTS5 syntax: AND, OR, NOT, prefix*)"`
}

type DeleteEntitiesInput struct {
	Names []string `json:"names" jsonschema:"Entity names to delete"`
}

type catalogListing struct {
	Entities      []models.Entity       `json:"entities"`
	RelationTypes []models.RelationType `json:"relation_types"`
}

// --- Handlers ---

func (t *CatalogTools) CreateEntities(ctx context.Context, _ *mcp.CallToolRequest, input CreateEntitiesInput) (*mcp.CallToolResult, any, error) {
	if len(input.Entities) == 0 {
		return toolError("At least one entity is required"), nil, nil
	}
	entities := make([]storage.EntityInput, len(input.Entities))
	for i, e := range input.Entities {
		entities[i] = storage.EntityInput{Name: e.Name, Kind: e.Kind}
	}

	created, err := t.Catalog.CreateEntities(ctx, entities)
	if err != nil {
		return toolError("Failed to create entities: %v", err), nil, nil
	}
	t.Log.InfoContext(ctx, "entities created", "count", len(created))
	return toolJSON(created)
}

func (t *CatalogTools) CreateRelationTypes(ctx context.Context, _ *mcp.CallToolRequest, input CreateRelationTypesInput) (*mcp.CallToolResult, any, error) {
	if len(input.Descriptions) == 0 {
		return toolError("At least one description is required"), nil, nil
	}
	created, err := t.Catalog.CreateRelationTypes(ctx, input.Descriptions)
	if err != nil {
		return toolError("Failed to create relation types: %v", err), nil, nil
	}
	t.Log.InfoContext(ctx, "relation types created", "count", len(created))
	return toolJSON(created)
}

func (t *CatalogTools) SearchEntities(ctx context.Context, _ *mcp.CallToolRequest, input SearchEntitiesInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return toolError("Query is required"), nil, nil
	}
	entities, err := t.Catalog.SearchEntities(ctx, input.Query)
	if err != nil {
		return toolError("Search failed: %v", err), nil, nil
	}
	if entities == nil {
		entities = []models.Entity{}
	}
	return toolJSON(entities)
}

func (t *CatalogTools) ListCatalog(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	entities, err := t.Catalog.ListEntities(ctx)
	if err != nil {
		return toolError("Failed to list entities: %v", err), nil, nil
	}
	rts, err := t.Catalog.ListRelationTypes(ctx)
	if err != nil {
		return toolError("Failed to list relation types: %v", err), nil, nil
	}
	if entities == nil {
		entities = []models.Entity{}
	}
	if rts == nil {
		rts = []models.RelationType{}
	}
	return toolJSON(catalogListing{Entities: entities, RelationTypes: rts})
}

func (t *CatalogTools) DeleteEntities(ctx context.Context, _ *mcp.CallToolRequest, input DeleteEntitiesInput) (*mcp.CallToolResult, any, error) {
	count, err := t.Catalog.DeleteEntities(ctx, input.Names)
	if err != nil {
		return toolError("Failed to delete entities: %v", err), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted %d entities.", count)), nil, nil
}
