package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/graphstore"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/preprocess"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/resolver"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/session"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/storage"
)

// backend is the catalog plus the resolvers selected by storage.driver.
type backend struct {
	catalog   *storage.CatalogStore
	entities  importer.EntityResolver
	relations importer.RelationTypeResolver
	closers   []func() error
}

func (b *backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openCatalog opens the SQLite catalog, creating its directory if needed.
func (st *state) openCatalog() (*storage.CatalogStore, error) {
	path := st.cfg.Storage.Path
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	return storage.Open(path)
}

// openBackend opens the catalog and the configured resolvers. The circuit
// breaker wraps whichever resolvers are in use when enabled.
func (st *state) openBackend(ctx context.Context) (*backend, error) {
	catalog, err := st.openCatalog()
	if err != nil {
		return nil, err
	}
	b := &backend{catalog: catalog, entities: catalog, relations: catalog}
	b.closers = append(b.closers, catalog.Close)

	if st.cfg.Storage.Driver == "neo4j" {
		n := st.cfg.Storage.Neo4j
		gs, err := graphstore.New(n.URI, n.Username, n.Password, n.Database)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() error { return gs.Close(context.Background()) })
		if err := gs.VerifyConnectivity(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("connect to neo4j at %s: %w", n.URI, err)
		}
		b.entities, b.relations = gs, gs
		st.log.Info("Resolving against Neo4j", "uri", n.URI, "database", n.Database)
	}

	if st.cfg.CircuitBreaker.Enabled {
		br := resolver.NewBreaker(b.entities, b.relations, st.cfg.CircuitBreaker, st.log)
		b.entities, b.relations = br, br
	}
	return b, nil
}

// fieldNames returns the configured fact property names.
func (st *state) fieldNames() importer.FieldNames {
	return importer.FieldNames{
		Source: st.cfg.Importer.SourceName,
		Role:   st.cfg.Importer.RoleName,
		Target: st.cfg.Importer.TargetName,
	}
}

// preprocessor loads the rules file, or returns nil when none is configured.
func (st *state) preprocessor() (importer.Preprocessor, error) {
	path := st.cfg.Importer.RulesFile
	if path == "" {
		return nil, nil
	}
	chain, err := preprocess.LoadRules(path)
	if err != nil {
		return nil, err
	}
	st.log.Info("Loaded preprocessing rules", "file", path, "rules", len(chain))
	return chain, nil
}

// newSession builds an import session over b.
func (st *state) newSession(b *backend) (*session.Session, error) {
	pre, err := st.preprocessor()
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		Entities:     b.entities,
		Relations:    b.relations,
		Preprocessor: pre,
		FieldNames:   st.fieldNames(),
		Logger:       st.log,
	}), nil
}
