// Package graphstore resolves entities and relation types against a Neo4j
// graph holding (:Entity {id, name, kind}) and (:RelationType {id,
// description}) nodes.
package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

const (
	entityByNameQuery = `
		MATCH (e:Entity {name: $name})
		RETURN e.id AS id, e.name AS name, coalesce(e.kind, '') AS kind
		LIMIT 1`
	relationTypeByDescriptionQuery = `
		MATCH (r:RelationType {description: $description})
		RETURN r.id AS id, r.description AS description
		LIMIT 1`
)

// Store is a read-only resolver over Neo4j.
type Store struct {
	client   neo4j.DriverWithContext
	database string
}

// New connects to Neo4j. An empty database selects "neo4j".
func New(uri, username, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Store{client: driver, database: database}, nil
}

// VerifyConnectivity checks that the server is reachable.
func (s *Store) VerifyConnectivity(ctx context.Context) error {
	return s.client.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// ResolveEntity implements importer.EntityResolver.
func (s *Store) ResolveEntity(ctx context.Context, name string) (*models.Entity, error) {
	rec, err := s.single(ctx, entityByNameQuery, map[string]any{"name": name})
	if err != nil || rec == nil {
		return nil, err
	}
	return &models.Entity{
		ID:   stringValue(rec, "id"),
		Name: stringValue(rec, "name"),
		Kind: stringValue(rec, "kind"),
	}, nil
}

// ResolveRelationType implements importer.RelationTypeResolver.
func (s *Store) ResolveRelationType(ctx context.Context, description string) (*models.RelationType, error) {
	rec, err := s.single(ctx, relationTypeByDescriptionQuery, map[string]any{"description": description})
	if err != nil || rec == nil {
		return nil, err
	}
	return &models.RelationType{
		ID:          stringValue(rec, "id"),
		Description: stringValue(rec, "description"),
	}, nil
}

// single runs a read query and returns its first record as a map, or nil
// when there is none.
func (s *Store) single(ctx context.Context, query string, params map[string]any) (map[string]any, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return records[0].AsMap(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j query: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(map[string]any), nil
}

// stringValue reads a string column, tolerating null and non-string ids.
func stringValue(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
