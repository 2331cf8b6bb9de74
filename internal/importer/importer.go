// Package importer matches loosely structured facts against a canonical
// entity catalog and a relation-type vocabulary.
//
// An Importer is a single-pass accumulator. Each call to Match preprocesses
// the input, resolves every fact's source, role and target, and returns one
// MatchRecord per processed fact. Lookup statistics accumulate on the
// instance across calls and are never reset; use a fresh Importer for a
// clean run.
//
// An Importer is not safe for concurrent use. At most one Match may be in
// flight per instance; callers sharing an instance must serialise access.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// FieldNames names the fact properties holding the source entity name, the
// relation role and the target entity name.
type FieldNames struct {
	Source string `json:"source_name" mapstructure:"source_name"`
	Role   string `json:"role_name" mapstructure:"role_name"`
	Target string `json:"target_name" mapstructure:"target_name"`
}

// DefaultFieldNames returns source, role and target.
func DefaultFieldNames() FieldNames {
	return FieldNames{Source: "source", Role: "role", Target: "target"}
}

// withDefaults fills empty members from DefaultFieldNames.
func (f FieldNames) withDefaults() FieldNames {
	def := DefaultFieldNames()
	if f.Source == "" {
		f.Source = def.Source
	}
	if f.Role == "" {
		f.Role = def.Role
	}
	if f.Target == "" {
		f.Target = def.Target
	}
	return f
}

// Option configures an Importer.
type Option func(*Importer)

// WithFieldNames overrides the property names read from each fact. Empty
// members keep their defaults.
func WithFieldNames(f FieldNames) Option {
	return func(i *Importer) { i.fields = f.withDefaults() }
}

// WithPreprocessor sets the preprocessing stage.
func WithPreprocessor(p Preprocessor) Option {
	return func(i *Importer) { i.SetPreprocessor(p) }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.log = l
		}
	}
}

// Importer resolves facts and keeps lookup statistics.
type Importer struct {
	entities  EntityResolver
	relations RelationTypeResolver
	fields    FieldNames
	pre       Preprocessor
	log       *slog.Logger

	entityStats   *StatTable[models.Entity]
	relationStats *StatTable[models.RelationType]
}

// New creates an Importer that resolves names through entities and roles
// through relations.
func New(entities EntityResolver, relations RelationTypeResolver, opts ...Option) *Importer {
	i := &Importer{
		entities:      entities,
		relations:     relations,
		fields:        DefaultFieldNames(),
		pre:           Identity,
		log:           slog.New(slog.DiscardHandler),
		entityStats:   newStatTable[models.Entity](),
		relationStats: newStatTable[models.RelationType](),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SetPreprocessor replaces the preprocessing stage. A nil value restores
// Identity.
func (i *Importer) SetPreprocessor(p Preprocessor) {
	if p == nil {
		p = Identity
	}
	i.pre = p
}

// FieldNames returns the configured property names.
func (i *Importer) FieldNames() FieldNames {
	return i.fields
}

// Match preprocesses facts and resolves each resulting fact, in order. It
// returns one MatchRecord per processed fact, or nil and an error if the
// preprocessor or a resolver fails. A preprocessor failure leaves the
// statistics untouched; a resolver failure may leave the sightings of the
// failing fact recorded.
func (i *Importer) Match(ctx context.Context, facts []models.Fact) ([]models.MatchRecord, error) {
	working := make([]models.Fact, 0, len(facts))
	for n, fact := range facts {
		out, err := i.pre.Preprocess(fact)
		if err != nil {
			return nil, fmt.Errorf("preprocess fact %d: %w", n, err)
		}
		working = append(working, out...)
	}

	matches := make([]models.MatchRecord, 0, len(working))
	for _, fact := range working {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := i.matchOne(ctx, fact)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	i.log.DebugContext(ctx, "facts matched",
		"facts_in", len(facts),
		"facts_out", len(working),
		"complete", countComplete(matches),
	)
	return matches, nil
}

func (i *Importer) matchOne(ctx context.Context, fact models.Fact) (models.MatchRecord, error) {
	rawSource := fact.Get(i.fields.Source)
	rawRole := fact.Get(i.fields.Role)
	rawTarget := fact.Get(i.fields.Target)

	source, err := i.resolveEntity(ctx, rawSource)
	if err != nil {
		return models.MatchRecord{}, err
	}
	relation, err := i.resolveRelationType(ctx, rawRole)
	if err != nil {
		return models.MatchRecord{}, err
	}
	target, err := i.resolveEntity(ctx, rawTarget)
	if err != nil {
		return models.MatchRecord{}, err
	}

	return models.MatchRecord{Source: source, RelationType: relation, Target: target}, nil
}

func (i *Importer) resolveEntity(ctx context.Context, name string) (*models.Entity, error) {
	i.entityStats.sight(name)
	e, err := i.entities.ResolveEntity(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve entity %q: %w", name, err)
	}
	i.entityStats.resolved(name, e)
	return e, nil
}

func (i *Importer) resolveRelationType(ctx context.Context, description string) (*models.RelationType, error) {
	i.relationStats.sight(description)
	r, err := i.relations.ResolveRelationType(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("resolve relation type %q: %w", description, err)
	}
	i.relationStats.resolved(description, r)
	return r, nil
}

// Entities returns a snapshot of the merged source/target name statistics.
func (i *Importer) Entities() map[string]LookupStat[models.Entity] {
	return i.entityStats.Snapshot()
}

// RelationTypes returns a snapshot of the role statistics.
func (i *Importer) RelationTypes() map[string]LookupStat[models.RelationType] {
	return i.relationStats.Snapshot()
}

// UnmatchedEntities lists entity names whose latest lookup missed, most
// frequent first.
func (i *Importer) UnmatchedEntities() []string {
	return i.entityStats.Unmatched()
}

// UnmatchedRelationTypes lists roles whose latest lookup missed, most
// frequent first.
func (i *Importer) UnmatchedRelationTypes() []string {
	return i.relationStats.Unmatched()
}

// Summary aggregates both stat tables.
type Summary struct {
	Entities      TableSummary `json:"entities"`
	RelationTypes TableSummary `json:"relation_types"`
}

// Summary returns totals for the statistics gathered so far.
func (i *Importer) Summary() Summary {
	return Summary{
		Entities:      i.entityStats.summary(),
		RelationTypes: i.relationStats.summary(),
	}
}

func countComplete(matches []models.MatchRecord) int {
	n := 0
	for _, m := range matches {
		if m.Complete() {
			n++
		}
	}
	return n
}
