package storage

import (
	"context"
	"fmt"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// SearchEntities runs an FTS5 query over entity names and kinds. It is a
// browsing aid for extending the catalog; matching never uses it.
func (c *CatalogStore) SearchEntities(ctx context.Context, query string) ([]models.Entity, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT e.id, e.name, e.kind, e.created_at, e.updated_at FROM entities e
		 JOIN entities_fts ON entities_fts.rowid = e.rowid
		 WHERE entities_fts MATCH ? AND e.deleted_at IS NULL
		 ORDER BY rank`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("search entities fts: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}
