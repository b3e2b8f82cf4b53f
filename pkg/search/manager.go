package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// Manager is the single entry point for non-paginated searches. It selects
// the match mode, fans out and merges batched query strings, and falls back
// from the database path to client-side search on failure.
type Manager struct {
	strategy Strategy
	cfg      config.SearchConfig
	log      *slog.Logger
	breaker  *gobreaker.CircuitBreaker
}

// NewManager wires a manager to its strategy. When cbCfg.Enabled, the
// database fuzzy path runs through a circuit breaker; a tripped breaker
// counts as a database failure and takes the same fallback path.
func NewManager(strategy Strategy, cfg config.SearchConfig, cbCfg config.CircuitBreakerConfig, log *slog.Logger) *Manager {
	m := &Manager{strategy: strategy, cfg: cfg, log: log}

	if cbCfg.Enabled {
		m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "database-search",
			MaxRequests: cbCfg.MaxRequests,
			Interval:    time.Duration(cbCfg.Interval) * time.Second,
			Timeout:     time.Duration(cbCfg.Timeout) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= cbCfg.ReadyToTripRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if to == gobreaker.StateOpen {
					log.Warn("circuit breaker opened", "name", name, "from", from.String())
				}
			},
		})
	}
	return m
}

// Strategy exposes the manager's strategy so the pagination layer can probe
// its capabilities.
func (m *Manager) Strategy() Strategy { return m.strategy }

// ResolveThreshold applies the configured default when a call does not
// supply a threshold, and rejects out-of-range values before they reach any
// backend.
func (m *Manager) ResolveThreshold(opts types.SearchOptions) (float64, error) {
	if opts.FuzzyThreshold == 0 {
		return m.cfg.FuzzyThreshold, nil
	}
	if opts.FuzzyThreshold < 0 || opts.FuzzyThreshold > 1 {
		return 0, types.ErrInvalidThreshold
	}
	return opts.FuzzyThreshold, nil
}

// Search runs one search call. queries of length > 1 are a batch whose
// results are unioned, never intersected. entities may carry a preloaded
// snapshot; when nil the strategy bulk-loads on demand.
//
// Mode selection: a non-empty ExactTags filter takes precedence and ignores
// the text query entirely; otherwise exact substring matching is the
// default, and fuzzy matching runs only when requested.
func (m *Manager) Search(ctx context.Context, queries []string, entities []types.Entity, opts types.SearchOptions, project string) ([]types.Entity, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	threshold, err := m.ResolveThreshold(opts)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		queries = []string{""}
	}

	// Tag filtering short-circuits free-text matching.
	if len(opts.ExactTags) > 0 {
		if entities == nil {
			entities, err = m.strategy.GetAllEntities(ctx, project)
			if err != nil {
				return nil, err
			}
		}
		return FilterByTags(entities, opts.ExactTags, opts.TagMatchMode), nil
	}

	if opts.SearchMode != types.SearchModeFuzzy {
		if entities != nil {
			return filterExact(entities, queries), nil
		}
		return m.strategy.SearchExact(ctx, queries, project)
	}

	return m.searchFuzzy(ctx, queries, entities, threshold, project)
}

func (m *Manager) searchFuzzy(ctx context.Context, queries []string, entities []types.Entity, threshold float64, project string) ([]types.Entity, error) {
	if m.strategy.CanUseDatabase() {
		results, err := m.searchDatabaseBatched(ctx, queries, threshold, project)
		if err == nil {
			return results, nil
		}
		if !m.cfg.FallbackEnabled {
			return nil, err
		}
		m.log.Warn("database search failed, falling back to client-side search",
			"project", project, "error", err)
	}

	if entities == nil {
		var err error
		entities, err = m.strategy.GetAllEntities(ctx, project)
		if err != nil {
			return nil, err
		}
	}
	return m.strategy.SearchClientSide(entities, queries, threshold), nil
}

// searchDatabaseBatched splits the query terms into configured batch sizes,
// issues one OR-predicate database query per batch, and unions the results
// deduplicated by name in first-match order. A failure in any batch fails
// the whole call; there is no partial-success format.
func (m *Manager) searchDatabaseBatched(ctx context.Context, queries []string, threshold float64, project string) ([]types.Entity, error) {
	batches := make([][]types.Entity, 0)

	for start := 0; start < len(queries); start += m.cfg.BatchSize {
		end := min(start+m.cfg.BatchSize, len(queries))
		batch := queries[start:end]

		results, err := m.execDatabase(ctx, batch, threshold, project)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}
		batches = append(batches, results)
	}
	return dedupeByName(batches...), nil
}

func (m *Manager) execDatabase(ctx context.Context, queries []string, threshold float64, project string) ([]types.Entity, error) {
	if m.breaker == nil {
		return m.strategy.SearchDatabase(ctx, queries, threshold, project)
	}
	res, err := m.breaker.Execute(func() (interface{}, error) {
		return m.strategy.SearchDatabase(ctx, queries, threshold, project)
	})
	if err != nil {
		return nil, err
	}
	return res.([]types.Entity), nil
}
