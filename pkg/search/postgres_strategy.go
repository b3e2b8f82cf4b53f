package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// EntityQuerier is the parameterized query primitive the Postgres strategy
// builds its native queries on, implemented by store.PostgresStore.
type EntityQuerier interface {
	QueryEntities(ctx context.Context, query string, args ...any) ([]types.Entity, error)
	QueryCount(ctx context.Context, query string, args ...any) (int, error)
}

// PostgresStrategy is the strategy variant for the server-relational
// backend. Fuzzy matching is pushed down to pg_trgm similarity, exact
// matching to ILIKE, and pagination to OFFSET/LIMIT with a count query over
// the identical predicate.
type PostgresStrategy struct {
	store EntityQuerier
	cfg   config.SearchConfig
	log   *slog.Logger
}

// NewPostgresStrategy creates the server-backend strategy.
func NewPostgresStrategy(store EntityQuerier, cfg config.SearchConfig, log *slog.Logger) *PostgresStrategy {
	return &PostgresStrategy{store: store, cfg: cfg, log: log}
}

func (s *PostgresStrategy) CanUseDatabase() bool { return true }

func (s *PostgresStrategy) SearchDatabase(ctx context.Context, queries []string, threshold float64, project string) ([]types.Entity, error) {
	query, args := buildFuzzyQuery(project, queries, threshold, s.cfg.MaxResults, 0, false)
	entities, err := s.store.QueryEntities(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database fuzzy search failed: %w", err)
	}
	return entities, nil
}

func (s *PostgresStrategy) SearchClientSide(entities []types.Entity, queries []string, threshold float64) []types.Entity {
	return filterFuzzy(entities, queries, threshold, s.cfg.ChunkSize)
}

func (s *PostgresStrategy) SearchExact(ctx context.Context, queries []string, project string) ([]types.Entity, error) {
	query, args := buildExactQuery(project, queries, s.cfg.MaxResults, 0, false)
	entities, err := s.store.QueryEntities(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database exact search failed: %w", err)
	}
	return entities, nil
}

func (s *PostgresStrategy) GetAllEntities(ctx context.Context, project string) ([]types.Entity, error) {
	query := fmt.Sprintf(
		`SELECT name, entity_type, observations, tags, created_at, updated_at
		 FROM entities WHERE project = $1
		 ORDER BY updated_at DESC, name ASC LIMIT %d`, s.cfg.MaxClientEntities)
	entities, err := s.store.QueryEntities(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("bulk entity load failed: %w", err)
	}
	if len(entities) == s.cfg.MaxClientEntities {
		s.log.Warn("entity load cap hit, search results may be incomplete",
			"project", project, "cap", s.cfg.MaxClientEntities)
	}
	return entities, nil
}

// SearchPage implements PageSearcher: one OFFSET/LIMIT data query plus a
// count query over the identical predicate, regardless of match mode.
func (s *PostgresStrategy) SearchPage(ctx context.Context, queries []string, opts types.SearchOptions, threshold float64, project string, offset, limit int) ([]types.Entity, int, error) {
	var (
		dataQuery  string
		dataArgs   []any
		countQuery string
		countArgs  []any
	)

	switch {
	case len(opts.ExactTags) > 0:
		dataQuery, dataArgs = buildTagQuery(project, opts.ExactTags, opts.TagMatchMode, limit, offset, false)
		countQuery, countArgs = buildTagQuery(project, opts.ExactTags, opts.TagMatchMode, 0, 0, true)
	case opts.SearchMode == types.SearchModeFuzzy:
		dataQuery, dataArgs = buildFuzzyQuery(project, queries, threshold, limit, offset, false)
		countQuery, countArgs = buildFuzzyQuery(project, queries, threshold, 0, 0, true)
	default:
		dataQuery, dataArgs = buildExactQuery(project, queries, limit, offset, false)
		countQuery, countArgs = buildExactQuery(project, queries, 0, 0, true)
	}

	entities, err := s.store.QueryEntities(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("paginated search failed: %w", err)
	}
	total, err := s.store.QueryCount(ctx, countQuery, countArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("paginated count failed: %w", err)
	}
	return entities, total, nil
}

const selectColumns = `SELECT name, entity_type, observations, tags, created_at, updated_at FROM entities`

// buildFuzzyQuery composes a single OR-predicate across per-term similarity
// conditions instead of one round-trip per term. Relevance is the greatest
// per-field similarity across all terms.
func buildFuzzyQuery(project string, queries []string, threshold float64, limit, offset int, forCount bool) (string, []any) {
	args := []any{project, threshold}
	conds := make([]string, 0, len(queries))
	scores := make([]string, 0, len(queries))

	for _, q := range queries {
		args = append(args, q)
		n := len(args)
		expr := fmt.Sprintf(
			"GREATEST(similarity(name, $%d), similarity(entity_type, $%d), similarity(observations::text, $%d), similarity(tags::text, $%d))",
			n, n, n, n)
		conds = append(conds, expr+" >= $2")
		scores = append(scores, expr)
	}

	var b strings.Builder
	if forCount {
		b.WriteString(`SELECT COUNT(*) FROM entities`)
	} else {
		b.WriteString(selectColumns)
	}
	b.WriteString(` WHERE project = $1 AND (`)
	b.WriteString(strings.Join(conds, " OR "))
	b.WriteString(`)`)

	if !forCount {
		fmt.Fprintf(&b, ` ORDER BY GREATEST(%s) DESC, name ASC`, strings.Join(scores, ", "))
		appendLimitOffset(&b, limit, offset)
	}
	return b.String(), args
}

// buildExactQuery matches by case-insensitive substring across the four
// searchable fields. An empty term list (or all-empty terms) matches the
// whole project.
func buildExactQuery(project string, queries []string, limit, offset int, forCount bool) (string, []any) {
	args := []any{project}
	conds := make([]string, 0, len(queries))

	for _, q := range queries {
		if q == "" {
			// Empty query matches everything; no condition needed.
			conds = conds[:0]
			break
		}
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(name ILIKE $%d OR entity_type ILIKE $%d
			  OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(observations) o WHERE o ILIKE $%d)
			  OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) tg WHERE tg ILIKE $%d))`,
			n, n, n, n))
	}

	var b strings.Builder
	if forCount {
		b.WriteString(`SELECT COUNT(*) FROM entities`)
	} else {
		b.WriteString(selectColumns)
	}
	b.WriteString(` WHERE project = $1`)
	if len(conds) > 0 {
		b.WriteString(` AND (` + strings.Join(conds, " OR ") + `)`)
	}
	if !forCount {
		b.WriteString(` ORDER BY updated_at DESC, name ASC`)
		appendLimitOffset(&b, limit, offset)
	}
	if len(conds) == 0 {
		// Reset args to just the project when the condition collapsed.
		args = args[:1]
	}
	return b.String(), args
}

// buildTagQuery matches exact case-sensitive tags via jsonb containment
// operators: ?| for any-of, ?& for all-of.
func buildTagQuery(project string, tags []string, mode types.TagMatchMode, limit, offset int, forCount bool) (string, []any) {
	op := "?|"
	if mode == types.TagMatchAll {
		op = "?&"
	}

	var b strings.Builder
	if forCount {
		b.WriteString(`SELECT COUNT(*) FROM entities`)
	} else {
		b.WriteString(selectColumns)
	}
	fmt.Fprintf(&b, ` WHERE project = $1 AND tags %s $2::text[]`, op)
	if !forCount {
		b.WriteString(` ORDER BY updated_at DESC, name ASC`)
		appendLimitOffset(&b, limit, offset)
	}
	return b.String(), []any{project, pq.Array(tags)}
}

func appendLimitOffset(b *strings.Builder, limit, offset int) {
	if limit > 0 {
		fmt.Fprintf(b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(b, " OFFSET %d", offset)
	}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
