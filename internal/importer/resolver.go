package importer

import (
	"context"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// EntityResolver looks up a canonical entity by exact name. A miss is
// reported as (nil, nil); a non-nil error means the lookup itself failed.
type EntityResolver interface {
	ResolveEntity(ctx context.Context, name string) (*models.Entity, error)
}

// RelationTypeResolver looks up a relation type by exact description, with
// the same miss convention as EntityResolver.
type RelationTypeResolver interface {
	ResolveRelationType(ctx context.Context, description string) (*models.RelationType, error)
}

// EntityResolverFunc adapts a function to EntityResolver.
type EntityResolverFunc func(ctx context.Context, name string) (*models.Entity, error)

func (f EntityResolverFunc) ResolveEntity(ctx context.Context, name string) (*models.Entity, error) {
	return f(ctx, name)
}

// RelationTypeResolverFunc adapts a function to RelationTypeResolver.
type RelationTypeResolverFunc func(ctx context.Context, description string) (*models.RelationType, error)

func (f RelationTypeResolverFunc) ResolveRelationType(ctx context.Context, description string) (*models.RelationType, error) {
	return f(ctx, description)
}
