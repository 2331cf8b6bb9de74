package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no live row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a name or description is already taken.
	ErrDuplicate = errors.New("already exists")
)

// EntityInput describes an entity to create.
type EntityInput struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
}

// CatalogStore holds the canonical entities and relation types that facts
// are matched against, plus a staging table for uploaded facts.
type CatalogStore struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path and migrates it.
func Open(path string) (*CatalogStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	if _, err := db.Exec(CatalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	if _, err := db.Exec(CatalogTriggers); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog triggers: %w", err)
	}
	return &CatalogStore{db: db}, nil
}

// Close closes the database connection.
func (c *CatalogStore) Close() error {
	return c.db.Close()
}

// CreateEntities inserts entities in one transaction. A name already held by
// a live entity fails the whole batch with ErrDuplicate.
func (c *CatalogStore) CreateEntities(ctx context.Context, entities []EntityInput) ([]models.Entity, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entity name is required")
		}
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entities WHERE name = ? AND deleted_at IS NULL`, e.Name,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check entity %q: %w", e.Name, err)
		}
		if exists > 0 {
			return nil, fmt.Errorf("entity %q: %w", e.Name, ErrDuplicate)
		}

		entity := models.Entity{ID: uuid.New().String(), Name: e.Name, Kind: e.Kind}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entities (id, name, kind) VALUES (?, ?, ?)`,
			entity.ID, entity.Name, entity.Kind,
		)
		if err != nil {
			return nil, fmt.Errorf("insert entity %q: %w", e.Name, err)
		}

		// Re-read to get timestamps
		err = tx.QueryRowContext(ctx,
			`SELECT created_at, updated_at FROM entities WHERE id = ?`, entity.ID,
		).Scan(&entity.CreatedAt, &entity.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("read entity %q: %w", e.Name, err)
		}
		created = append(created, entity)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// CreateRelationTypes inserts relation types in one transaction.
func (c *CatalogStore) CreateRelationTypes(ctx context.Context, descriptions []string) ([]models.RelationType, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.RelationType, 0, len(descriptions))
	for _, d := range descriptions {
		if d == "" {
			return nil, fmt.Errorf("relation type description is required")
		}
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM relation_types WHERE description = ?`, d,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check relation type %q: %w", d, err)
		}
		if exists > 0 {
			return nil, fmt.Errorf("relation type %q: %w", d, ErrDuplicate)
		}

		rt := models.RelationType{ID: uuid.New().String(), Description: d}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relation_types (id, description) VALUES (?, ?)`, rt.ID, rt.Description,
		); err != nil {
			return nil, fmt.Errorf("insert relation type %q: %w", d, err)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM relation_types WHERE id = ?`, rt.ID,
		).Scan(&rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("read relation type %q: %w", d, err)
		}
		created = append(created, rt)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// EntityByName returns the live entity with exactly this name.
func (c *CatalogStore) EntityByName(ctx context.Context, name string) (*models.Entity, error) {
	var e models.Entity
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at, updated_at FROM entities WHERE name = ? AND deleted_at IS NULL`,
		name,
	).Scan(&e.ID, &e.Name, &e.Kind, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entity %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup entity %q: %w", name, err)
	}
	return &e, nil
}

// RelationTypeByDescription returns the relation type with exactly this
// description.
func (c *CatalogStore) RelationTypeByDescription(ctx context.Context, description string) (*models.RelationType, error) {
	var r models.RelationType
	err := c.db.QueryRowContext(ctx,
		`SELECT id, description, created_at FROM relation_types WHERE description = ?`,
		description,
	).Scan(&r.ID, &r.Description, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("relation type %q: %w", description, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup relation type %q: %w", description, err)
	}
	return &r, nil
}

// ResolveEntity implements importer.EntityResolver. A miss is (nil, nil).
func (c *CatalogStore) ResolveEntity(ctx context.Context, name string) (*models.Entity, error) {
	e, err := c.EntityByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// ResolveRelationType implements importer.RelationTypeResolver. A miss is
// (nil, nil).
func (c *CatalogStore) ResolveRelationType(ctx context.Context, description string) (*models.RelationType, error) {
	r, err := c.RelationTypeByDescription(ctx, description)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// ListEntities returns all live entities ordered by name.
func (c *CatalogStore) ListEntities(ctx context.Context) ([]models.Entity, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, kind, created_at, updated_at FROM entities WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// ListRelationTypes returns all relation types ordered by description.
func (c *CatalogStore) ListRelationTypes(ctx context.Context) ([]models.RelationType, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, description, created_at FROM relation_types ORDER BY description`,
	)
	if err != nil {
		return nil, fmt.Errorf("query relation types: %w", err)
	}
	defer rows.Close()

	var rts []models.RelationType
	for rows.Next() {
		var r models.RelationType
		if err := rows.Scan(&r.ID, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relation type: %w", err)
		}
		rts = append(rts, r)
	}
	return rts, rows.Err()
}

// DeleteEntities soft-deletes entities by name and returns how many were
// deleted.
func (c *CatalogStore) DeleteEntities(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args[i] = name
	}

	result, err := c.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE entities SET deleted_at = datetime('now'), updated_at = datetime('now') WHERE name IN (%s) AND deleted_at IS NULL`,
			strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("soft-delete entities: %w", err)
	}
	return result.RowsAffected()
}

// StageFacts stores facts for a later match run. Facts without an ID get one.
func (c *CatalogStore) StageFacts(ctx context.Context, facts []models.Fact) ([]models.Fact, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	staged := make([]models.Fact, 0, len(facts))
	for _, f := range facts {
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("encode fact %s: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO staged_facts (id, properties) VALUES (?, ?)`, f.ID, string(props),
		); err != nil {
			return nil, fmt.Errorf("insert fact %s: %w", f.ID, err)
		}
		staged = append(staged, f)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return staged, nil
}

// ListStagedFacts returns staged facts in staging order. A limit <= 0 means
// no limit.
func (c *CatalogStore) ListStagedFacts(ctx context.Context, limit int) ([]models.Fact, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, properties, created_at FROM staged_facts ORDER BY created_at, rowid LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query staged facts: %w", err)
	}
	defer rows.Close()

	var facts []models.Fact
	for rows.Next() {
		var f models.Fact
		var props string
		if err := rows.Scan(&f.ID, &props, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan staged fact: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &f.Properties); err != nil {
			return nil, fmt.Errorf("decode staged fact %s: %w", f.ID, err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// ClearStagedFacts removes every staged fact.
func (c *CatalogStore) ClearStagedFacts(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM staged_facts`)
	if err != nil {
		return 0, fmt.Errorf("clear staged facts: %w", err)
	}
	return result.RowsAffected()
}

func scanEntities(rows *sql.Rows) ([]models.Entity, error) {
	var entities []models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
