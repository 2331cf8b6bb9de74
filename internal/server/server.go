package server

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/session"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/storage"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/tools"
)

// Deps are the collaborators the MCP tools are wired to.
type Deps struct {
	Catalog *storage.CatalogStore
	Session *session.Session
	Logger  *slog.Logger
}

// New creates a fully configured MCP server with all tools registered.
func New(deps Deps) *mcp.Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	ct := &tools.CatalogTools{Catalog: deps.Catalog, Log: log}
	it := &tools.ImportTools{Staging: deps.Catalog, Session: deps.Session, Log: log}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "fact-importer",
		Version: "0.1.0",
	}, nil)

	// Catalog tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_entities",
		Description: "Create canonical entities that fact source and target names are matched against",
	}, ct.CreateEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_relation_types",
		Description: "Create relation types that fact roles are matched against",
	}, ct.CreateRelationTypes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_entities",
		Description: "Search catalog entities using FTS5 full-text search",
	}, ct.SearchEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_catalog",
		Description: "List every entity and relation type in the catalog",
	}, ct.ListCatalog)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_entities",
		Description: "Soft-delete catalog entities by name",
	}, ct.DeleteEntities)

	// Import tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "stage_facts",
		Description: "Stage facts for a later match_facts call",
	}, it.StageFacts)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "match_facts",
		Description: "Match inline or staged facts against the catalog; statistics accumulate until reset_import",
	}, it.MatchFacts)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "import_stats",
		Description: "Show per-name and per-role lookup counts and resolutions for the current import run",
	}, it.ImportStats)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "reset_import",
		Description: "Start a fresh import run, optionally with custom fact property names",
	}, it.ResetImport)

	return srv
}
