// Package resolver holds decorators shared by every resolver backend.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/config"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// Breaker wraps an entity resolver and a relation-type resolver with one
// circuit breaker. While open, lookups fail fast with gobreaker.ErrOpenState,
// which the importer propagates like any other resolver failure. Misses and
// cancelled or expired contexts do not count as failures.
type Breaker struct {
	entities  importer.EntityResolver
	relations importer.RelationTypeResolver
	cb        *gobreaker.CircuitBreaker
}

// NewBreaker builds a Breaker from configuration.
func NewBreaker(entities importer.EntityResolver, relations importer.RelationTypeResolver, cfg config.CircuitBreakerConfig, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        "resolver",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{
		entities:  entities,
		relations: relations,
		cb:        gobreaker.NewCircuitBreaker(st),
	}
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// ResolveEntity implements importer.EntityResolver.
func (b *Breaker) ResolveEntity(ctx context.Context, name string) (*models.Entity, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.entities.ResolveEntity(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.Entity), nil
}

// ResolveRelationType implements importer.RelationTypeResolver.
func (b *Breaker) ResolveRelationType(ctx context.Context, description string) (*models.RelationType, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.relations.ResolveRelationType(ctx, description)
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.RelationType), nil
}
