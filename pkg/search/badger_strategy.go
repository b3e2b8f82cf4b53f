package search

import (
	"context"
	"log/slog"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// EntityLoader is the slice of the store the embedded strategy needs.
type EntityLoader interface {
	LoadEntities(ctx context.Context, project string) ([]types.Entity, error)
}

// BadgerStrategy is the strategy variant for the embedded backend. Badger
// has no native text matching, so every mode runs client-side over a
// bulk-loaded snapshot.
type BadgerStrategy struct {
	store EntityLoader
	cfg   config.SearchConfig
	log   *slog.Logger
}

// NewBadgerStrategy creates the embedded-backend strategy.
func NewBadgerStrategy(store EntityLoader, cfg config.SearchConfig, log *slog.Logger) *BadgerStrategy {
	return &BadgerStrategy{store: store, cfg: cfg, log: log}
}

func (s *BadgerStrategy) CanUseDatabase() bool { return false }

// SearchDatabase always fails on this backend. Degrading to an empty result
// here would be indistinguishable from a true no-match, so it never does.
func (s *BadgerStrategy) SearchDatabase(ctx context.Context, queries []string, threshold float64, project string) ([]types.Entity, error) {
	return nil, ErrDatabaseSearchUnsupported
}

func (s *BadgerStrategy) SearchClientSide(entities []types.Entity, queries []string, threshold float64) []types.Entity {
	return filterFuzzy(entities, queries, threshold, s.cfg.ChunkSize)
}

func (s *BadgerStrategy) SearchExact(ctx context.Context, queries []string, project string) ([]types.Entity, error) {
	entities, err := s.GetAllEntities(ctx, project)
	if err != nil {
		return nil, err
	}
	return filterExact(entities, queries), nil
}

func (s *BadgerStrategy) GetAllEntities(ctx context.Context, project string) ([]types.Entity, error) {
	entities, err := s.store.LoadEntities(ctx, project)
	if err != nil {
		return nil, err
	}
	if len(entities) > s.cfg.MaxClientEntities {
		s.log.Warn("entity load cap hit, search results may be incomplete",
			"project", project, "loaded", len(entities), "cap", s.cfg.MaxClientEntities)
		entities = entities[:s.cfg.MaxClientEntities]
	}
	return entities, nil
}
