package search

import (
	"context"
	"errors"

	"github.com/memkeeper/memkeeper/pkg/types"
)

// ErrDatabaseSearchUnsupported is returned when SearchDatabase is invoked on
// a strategy whose backend has no native similarity search. Calling it is a
// programming error; it never degrades to an empty result, because an empty
// result would be indistinguishable from a true no-match.
var ErrDatabaseSearchUnsupported = errors.New("database search is not supported by this backend")

// Strategy is the capability-tagged search interface. One variant exists per
// backend family, selected once at construction from the configured storage
// type, never via runtime type inspection.
type Strategy interface {
	// CanUseDatabase reports whether fuzzy search may be pushed down to
	// the backend.
	CanUseDatabase() bool

	// SearchDatabase runs backend-native similarity search for one or
	// more query terms, composed into a single OR-predicate query rather
	// than one round-trip per term. Results are entities scoring above
	// threshold, ordered by descending relevance, capped at the
	// configured max-results limit. Calling this when CanUseDatabase is
	// false returns ErrDatabaseSearchUnsupported.
	SearchDatabase(ctx context.Context, queries []string, threshold float64, project string) ([]types.Entity, error)

	// SearchClientSide runs in-process similarity matching over already
	// loaded entities, across name, entity type, observations and tags.
	// Batch queries are unioned and deduplicated by entity name in
	// first-match order. Entity lists larger than the configured chunk
	// size are processed in bounded chunks.
	SearchClientSide(entities []types.Entity, queries []string, threshold float64) []types.Entity

	// SearchExact runs case-insensitive substring matching across the
	// same four fields, backend-pushed where the backend allows it.
	SearchExact(ctx context.Context, queries []string, project string) ([]types.Entity, error)

	// GetAllEntities bulk-loads the project's entities in deterministic
	// order (most recently updated first, then name), capped at the
	// configured max-entities limit. Hitting the cap logs a warning;
	// results may be incomplete but the call succeeds.
	GetAllEntities(ctx context.Context, project string) ([]types.Entity, error)
}

// PageSearcher is the optional capability for backend-pushed pagination.
// Strategies implementing it execute a data query with OFFSET/LIMIT plus a
// count query scoped to the identical predicate.
type PageSearcher interface {
	// SearchPage returns one page of matches and the total match count
	// for the same predicate.
	SearchPage(ctx context.Context, queries []string, opts types.SearchOptions, threshold float64, project string, offset, limit int) ([]types.Entity, int, error)
}
