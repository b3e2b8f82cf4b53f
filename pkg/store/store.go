// Package store persists project-scoped knowledge graphs. Two backends are
// supported: an embedded Badger key/value store and a server-side PostgreSQL
// store. Null-field normalization happens here, once, so no consumer ever
// sees nil observations or tags.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// Provider identifies the storage backend family.
type Provider string

const (
	ProviderBadger   Provider = "badger"
	ProviderPostgres Provider = "postgres"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
)

// Store is the entity store collaborator consumed by the search layer and
// the facade. Searches only depend on LoadEntities and LoadGraph; mutations
// are whole-project read-modify-write with last-write-wins semantics under
// concurrent writers.
type Store interface {
	// LoadEntities returns the project's entities ordered most recently
	// updated first, then by name, for pagination stability.
	LoadEntities(ctx context.Context, project string) ([]types.Entity, error)

	// LoadRelations returns the project's relation triples.
	LoadRelations(ctx context.Context, project string) ([]types.Relation, error)

	// LoadGraph returns the project's full entity and relation sets.
	LoadGraph(ctx context.Context, project string) (*types.KnowledgeGraph, error)

	// CreateEntities persists the given entities, skipping names that
	// already exist. It returns the entities actually created.
	CreateEntities(ctx context.Context, project string, entities []types.Entity) ([]types.Entity, error)

	// CreateRelations persists relations, skipping duplicates of the
	// (from, to, relationType) triple. Returns the relations created.
	CreateRelations(ctx context.Context, project string, relations []types.Relation) ([]types.Relation, error)

	// AddObservations appends new observation strings to entities,
	// skipping contents an entity already has.
	AddObservations(ctx context.Context, project string, observations []types.Observation) error

	// AddTags adds exact-match tags to an entity. Existing tags are kept.
	AddTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error)

	// RemoveTags removes tags from an entity.
	RemoveTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error)

	// DeleteEntities removes entities and every relation touching them.
	DeleteEntities(ctx context.Context, project string, names []string) error

	// DeleteRelations removes the given relation triples.
	DeleteRelations(ctx context.Context, project string, relations []types.Relation) error

	// Projects lists the project namespaces present in the store.
	Projects(ctx context.Context) ([]string, error)

	Close() error
}

// New creates a store from configuration. The backend is chosen once here;
// nothing downstream inspects the concrete type outside capability
// interfaces.
func New(cfg config.DatabaseConfig, log *slog.Logger) (Store, error) {
	switch Provider(cfg.Driver) {
	case ProviderBadger:
		return NewBadgerStore(cfg.URI, log)
	case ProviderPostgres:
		return NewPostgresStore(cfg.URI, log)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
