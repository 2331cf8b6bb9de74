package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// Config holds what every importer run in a session is built from.
type Config struct {
	Entities     importer.EntityResolver
	Relations    importer.RelationTypeResolver
	Preprocessor importer.Preprocessor
	FieldNames   importer.FieldNames
	Logger       *slog.Logger
}

// Session holds the current import run for an MCP session. Statistics
// accumulate across Match calls until Reset. The mutex serialises access to
// the importer, which is not safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	cfg  Config
	imp  *importer.Importer
	runs int
}

// Stats is a snapshot of the current run's statistics.
type Stats struct {
	FieldNames             importer.FieldNames                                 `json:"field_names"`
	Runs                   int                                                 `json:"runs"`
	Summary                importer.Summary                                    `json:"summary"`
	Entities               map[string]importer.LookupStat[models.Entity]       `json:"entities"`
	RelationTypes          map[string]importer.LookupStat[models.RelationType] `json:"relation_types"`
	UnmatchedEntities      []string                                            `json:"unmatched_entities"`
	UnmatchedRelationTypes []string                                            `json:"unmatched_relation_types"`
}

// New creates a session with a fresh importer.
func New(cfg Config) *Session {
	s := &Session{cfg: cfg}
	s.imp = s.newImporter(cfg.FieldNames)
	return s
}

func (s *Session) newImporter(fields importer.FieldNames) *importer.Importer {
	return importer.New(s.cfg.Entities, s.cfg.Relations,
		importer.WithFieldNames(fields),
		importer.WithPreprocessor(s.cfg.Preprocessor),
		importer.WithLogger(s.cfg.Logger),
	)
}

// Match runs the current importer over facts and returns the run's summary
// as of this call.
func (s *Session) Match(ctx context.Context, facts []models.Fact) ([]models.MatchRecord, importer.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches, err := s.imp.Match(ctx, facts)
	if err != nil {
		return nil, importer.Summary{}, err
	}
	s.runs++
	return matches, s.imp.Summary(), nil
}

// Stats returns a snapshot of the accumulated statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		FieldNames:             s.imp.FieldNames(),
		Runs:                   s.runs,
		Summary:                s.imp.Summary(),
		Entities:               s.imp.Entities(),
		RelationTypes:          s.imp.RelationTypes(),
		UnmatchedEntities:      s.imp.UnmatchedEntities(),
		UnmatchedRelationTypes: s.imp.UnmatchedRelationTypes(),
	}
}

// Reset discards the current run and starts a fresh importer. A nil fields
// keeps the session's configured field names.
func (s *Session) Reset(fields *importer.FieldNames) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.cfg.FieldNames
	if fields != nil {
		f = *fields
	}
	s.imp = s.newImporter(f)
	s.runs = 0
}

// Runs returns how many successful Match calls the current run has seen.
func (s *Session) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
