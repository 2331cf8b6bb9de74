// Package catalog loads canonical entities and relation types from YAML
// seed files.
package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/storage"
)

// Seed is the content of a seed file.
//
//	entities:
//	  - {name: Adam, kind: person}
//	  - {name: USG, kind: organization}
//	relation_types:
//	  - is married to
type Seed struct {
	Entities      []storage.EntityInput `yaml:"entities"`
	RelationTypes []string              `yaml:"relation_types"`
}

// Result counts what Apply created.
type Result struct {
	Entities      int `json:"entities"`
	RelationTypes int `json:"relation_types"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &s, nil
}

// Apply creates the seed's entities and relation types. Entries already in
// the catalog are skipped so a seed can be applied repeatedly; a name listed
// twice is created once, with the first listing's kind.
func (s *Seed) Apply(ctx context.Context, store *storage.CatalogStore) (Result, error) {
	var res Result

	var entities []storage.EntityInput
	seen := make(map[string]bool, len(s.Entities))
	for _, e := range s.Entities {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		existing, err := store.ResolveEntity(ctx, e.Name)
		if err != nil {
			return res, err
		}
		if existing == nil {
			entities = append(entities, e)
		}
	}
	if len(entities) > 0 {
		created, err := store.CreateEntities(ctx, entities)
		if err != nil {
			return res, err
		}
		res.Entities = len(created)
	}

	var descriptions []string
	clear(seen)
	for _, d := range s.RelationTypes {
		if seen[d] {
			continue
		}
		seen[d] = true
		existing, err := store.ResolveRelationType(ctx, d)
		if err != nil {
			return res, err
		}
		if existing == nil {
			descriptions = append(descriptions, d)
		}
	}
	if len(descriptions) > 0 {
		created, err := store.CreateRelationTypes(ctx, descriptions)
		if err != nil {
			return res, err
		}
		res.RelationTypes = len(created)
	}
	return res, nil
}
