package memkeeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/search"
	"github.com/memkeeper/memkeeper/pkg/store"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// Memkeeper is the main interface for interacting with project-scoped
// knowledge graphs. All operations take a project namespace; data in one
// project is invisible to every other.
type Memkeeper interface {
	// CreateEntities persists new entities, skipping names that already
	// exist in the project. Returns the entities actually created.
	CreateEntities(ctx context.Context, project string, entities []types.Entity) ([]types.Entity, error)

	// CreateRelations persists directed relations between existing
	// entities, skipping exact duplicates of the (from, to, relationType)
	// triple. Returns the relations created.
	CreateRelations(ctx context.Context, project string, relations []types.Relation) ([]types.Relation, error)

	// AddObservations appends observation strings to entities, skipping
	// contents an entity already holds.
	AddObservations(ctx context.Context, project string, observations []types.Observation) error

	// AddTags adds exact-match tags to an entity and returns its updated
	// state.
	AddTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error)

	// RemoveTags removes tags from an entity and returns its updated
	// state.
	RemoveTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error)

	// DeleteEntities removes entities and cascades to every relation
	// touching them.
	DeleteEntities(ctx context.Context, project string, names []string) error

	// DeleteRelations removes the given relation triples.
	DeleteRelations(ctx context.Context, project string, relations []types.Relation) error

	// ReadGraph returns the project's full entity and relation sets.
	ReadGraph(ctx context.Context, project string) (*types.KnowledgeGraph, error)

	// Search returns the subgraph matching the query terms: the matched
	// entities plus the relations whose endpoints both matched. Multiple
	// terms are a batch whose results are unioned.
	Search(ctx context.Context, project string, queries []string, opts types.SearchOptions) (*types.KnowledgeGraph, error)

	// SearchPaginated returns one page of the same subgraph together with
	// a pagination envelope. Relations are scoped to the entities on the
	// returned page.
	SearchPaginated(ctx context.Context, project string, queries []string, req types.PageRequest, opts types.SearchOptions) (*types.PaginatedGraph, error)

	// Projects lists the project namespaces present in the store.
	Projects(ctx context.Context) ([]string, error)

	// Close releases the storage backend.
	Close() error
}

// Client is the main implementation of the Memkeeper interface. The storage
// backend and its matching search strategy are chosen once at construction
// from configuration.
type Client struct {
	store     store.Store
	manager   *search.Manager
	paginator *search.Paginator
	config    *config.Config
	logger    *slog.Logger
}

// NewClient creates a client from configuration. cfg must already be
// validated; logger may be nil, in which case slog.Default is used.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		st       store.Store
		strategy search.Strategy
	)
	switch store.Provider(cfg.Database.Driver) {
	case store.ProviderBadger:
		bs, err := store.NewBadgerStore(cfg.Database.URI, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		st = bs
		strategy = search.NewBadgerStrategy(bs, cfg.Search, logger)
	case store.ProviderPostgres:
		ps, err := store.NewPostgresStore(cfg.Database.URI, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		st = ps
		strategy = search.NewPostgresStrategy(ps, cfg.Search, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	manager := search.NewManager(strategy, cfg.Search, cfg.CircuitBreaker, logger)
	return &Client{
		store:     st,
		manager:   manager,
		paginator: search.NewPaginator(manager, cfg.Search, logger),
		config:    cfg,
		logger:    logger,
	}, nil
}

// Store returns the underlying entity store.
func (c *Client) Store() store.Store { return c.store }

func (c *Client) CreateEntities(ctx context.Context, project string, entities []types.Entity) ([]types.Entity, error) {
	return c.store.CreateEntities(ctx, project, entities)
}

func (c *Client) CreateRelations(ctx context.Context, project string, relations []types.Relation) ([]types.Relation, error) {
	return c.store.CreateRelations(ctx, project, relations)
}

func (c *Client) AddObservations(ctx context.Context, project string, observations []types.Observation) error {
	return c.store.AddObservations(ctx, project, observations)
}

func (c *Client) AddTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error) {
	return c.store.AddTags(ctx, project, name, tags)
}

func (c *Client) RemoveTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error) {
	return c.store.RemoveTags(ctx, project, name, tags)
}

func (c *Client) DeleteEntities(ctx context.Context, project string, names []string) error {
	return c.store.DeleteEntities(ctx, project, names)
}

func (c *Client) DeleteRelations(ctx context.Context, project string, relations []types.Relation) error {
	return c.store.DeleteRelations(ctx, project, relations)
}

func (c *Client) ReadGraph(ctx context.Context, project string) (*types.KnowledgeGraph, error) {
	return c.store.LoadGraph(ctx, project)
}

func (c *Client) Search(ctx context.Context, project string, queries []string, opts types.SearchOptions) (*types.KnowledgeGraph, error) {
	entities, err := c.manager.Search(ctx, queries, nil, opts, project)
	if err != nil {
		return nil, err
	}
	relations, err := c.relationsFor(ctx, project, entities)
	if err != nil {
		return nil, err
	}
	return &types.KnowledgeGraph{Entities: entities, Relations: relations}, nil
}

func (c *Client) SearchPaginated(ctx context.Context, project string, queries []string, req types.PageRequest, opts types.SearchOptions) (*types.PaginatedGraph, error) {
	entities, info, err := c.paginator.SearchPaginated(ctx, queries, req, opts, project)
	if err != nil {
		return nil, err
	}
	relations, err := c.relationsFor(ctx, project, entities)
	if err != nil {
		return nil, err
	}
	return &types.PaginatedGraph{Entities: entities, Relations: relations, Pagination: info}, nil
}

func (c *Client) Projects(ctx context.Context) ([]string, error) {
	return c.store.Projects(ctx)
}

func (c *Client) Close() error {
	return c.store.Close()
}

// relationsFor scopes the project's relations to the given entity set: only
// relations with both endpoints present survive.
func (c *Client) relationsFor(ctx context.Context, project string, entities []types.Entity) ([]types.Relation, error) {
	if len(entities) == 0 {
		return []types.Relation{}, nil
	}
	relations, err := c.store.LoadRelations(ctx, project)
	if err != nil {
		return nil, err
	}
	return search.FilterRelations(relations, entities), nil
}
