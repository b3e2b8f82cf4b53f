package search

import (
	"context"
	"log/slog"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// Paginator wraps the manager to return one page of results. When the
// active strategy supports backend-pushed paging it issues an OFFSET/LIMIT
// data query plus an identically scoped count query; otherwise it
// materializes the full result and slices. Callers cannot tell which path
// executed: both produce the same envelope semantics.
type Paginator struct {
	manager *Manager
	cfg     config.SearchConfig
	log     *slog.Logger
}

// NewPaginator creates a pagination layer over the manager.
func NewPaginator(manager *Manager, cfg config.SearchConfig, log *slog.Logger) *Paginator {
	return &Paginator{manager: manager, cfg: cfg, log: log}
}

// SearchPaginated returns the requested page and its envelope. The project
// and page request are validated before any backend call.
func (p *Paginator) SearchPaginated(ctx context.Context, queries []string, req types.PageRequest, opts types.SearchOptions, project string) ([]types.Entity, types.PageInfo, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, types.PageInfo{}, err
	}
	if err := req.Validate(p.cfg.MaxPageSize); err != nil {
		return nil, types.PageInfo{}, err
	}
	if err := opts.Validate(); err != nil {
		return nil, types.PageInfo{}, err
	}
	threshold, err := p.manager.ResolveThreshold(opts)
	if err != nil {
		return nil, types.PageInfo{}, err
	}
	if len(queries) == 0 {
		queries = []string{""}
	}

	if ps, ok := p.manager.Strategy().(PageSearcher); ok {
		entities, total, err := ps.SearchPage(ctx, queries, opts, threshold, project, req.Offset(), req.PageSize)
		if err == nil {
			return entities, types.NewPageInfo(req, total), nil
		}
		if !p.cfg.FallbackEnabled {
			return nil, types.PageInfo{}, err
		}
		p.log.Warn("backend-pushed pagination failed, falling back to in-memory paging",
			"project", project, "error", err)
	}

	// Fallback path: full search, then slice. totalCount is the full
	// result length so the envelope matches the pushed-down variant.
	all, err := p.manager.Search(ctx, queries, nil, opts, project)
	if err != nil {
		return nil, types.PageInfo{}, err
	}

	page := paginateSlice(all, req)
	return page, types.NewPageInfo(req, len(all)), nil
}

// paginateSlice returns the half-open window [page*size, page*size+size) of
// items. A page past the end is empty, not an error.
func paginateSlice(items []types.Entity, req types.PageRequest) []types.Entity {
	start := req.Offset()
	if start >= len(items) {
		return []types.Entity{}
	}
	end := min(start+req.PageSize, len(items))
	return items[start:end]
}
