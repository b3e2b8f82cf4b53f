package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/memkeeper/memkeeper/pkg/types"
)

// Key layout:
//
//	e|<project>|<name>  -> JSON entity
//	r|<project>         -> JSON relation list for the whole project
//
// Project names match ^[a-zA-Z0-9_-]+$ so '|' never appears inside the
// project segment. Relations are a single whole-project document because
// every relation mutation is a read-modify-write over the project anyway.
const (
	entityPrefix   = "e|"
	relationPrefix = "r|"
)

// BadgerStore is the embedded backend. It has no native text-match
// capability; all searching over its data happens client-side.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// NewBadgerStore opens (or creates) a Badger database at path. The special
// path ":memory:" opens an in-memory store, used by tests.
func NewBadgerStore(path string, log *slog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerStore{db: db, log: log}, nil
}

func entityKey(project, name string) []byte {
	return []byte(entityPrefix + project + "|" + name)
}

func relationKey(project string) []byte {
	return []byte(relationPrefix + project)
}

func (s *BadgerStore) LoadEntities(ctx context.Context, project string) ([]types.Entity, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}

	entities := []types.Entity{}
	prefix := []byte(entityPrefix + project + "|")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entity, err := decodeEntity(val, s.log, project)
			if err != nil {
				// One bad row never aborts the load.
				s.log.Warn("skipping undecodable entity row",
					"project", project, "key", string(it.Item().Key()), "error", err)
				continue
			}
			entities = append(entities, entity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	sortEntities(entities)
	return entities, nil
}

func (s *BadgerStore) loadRelations(txn *badger.Txn, project string) ([]types.Relation, error) {
	item, err := txn.Get(relationKey(project))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []types.Relation{}, nil
	}
	if err != nil {
		return nil, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	var relations []types.Relation
	if err := json.Unmarshal(val, &relations); err != nil {
		s.log.Warn("dropping unparseable relation list", "project", project, "error", err)
		return []types.Relation{}, nil
	}
	if relations == nil {
		relations = []types.Relation{}
	}
	return relations, nil
}

func (s *BadgerStore) LoadRelations(ctx context.Context, project string) ([]types.Relation, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}

	var relations []types.Relation
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		relations, err = s.loadRelations(txn, project)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load relations: %w", err)
	}
	return relations, nil
}

func (s *BadgerStore) LoadGraph(ctx context.Context, project string) (*types.KnowledgeGraph, error) {
	entities, err := s.LoadEntities(ctx, project)
	if err != nil {
		return nil, err
	}
	relations, err := s.LoadRelations(ctx, project)
	if err != nil {
		return nil, err
	}
	return &types.KnowledgeGraph{Entities: entities, Relations: relations}, nil
}

func (s *BadgerStore) CreateEntities(ctx context.Context, project string, entities []types.Entity) ([]types.Entity, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}

	created := []types.Entity{}
	now := time.Now().UTC()

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, entity := range entities {
			if err := entity.Validate(); err != nil {
				return err
			}
			key := entityKey(project, entity.Name)
			if _, err := txn.Get(key); err == nil {
				continue // name already exists, skip
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			entity.Normalize()
			entity.CreatedAt = now
			entity.UpdatedAt = now

			val, err := json.Marshal(entity)
			if err != nil {
				return err
			}
			if err := txn.Set(key, val); err != nil {
				return err
			}
			created = append(created, entity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entities: %w", err)
	}
	return created, nil
}

func (s *BadgerStore) CreateRelations(ctx context.Context, project string, relations []types.Relation) ([]types.Relation, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}

	created := []types.Relation{}
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.loadRelations(txn, project)
		if err != nil {
			return err
		}

		seen := make(map[types.Relation]bool, len(existing))
		for _, r := range existing {
			seen[r] = true
		}

		for _, r := range relations {
			if err := r.Validate(); err != nil {
				return err
			}
			if seen[r] {
				continue
			}
			seen[r] = true
			existing = append(existing, r)
			created = append(created, r)
		}

		val, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		return txn.Set(relationKey(project), val)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relations: %w", err)
	}
	return created, nil
}

// updateEntity applies fn to a stored entity and writes it back with a fresh
// UpdatedAt. Whole-project read-modify-write; last write wins.
func (s *BadgerStore) updateEntity(project, name string, fn func(*types.Entity)) (*types.Entity, error) {
	var updated *types.Entity
	err := s.db.Update(func(txn *badger.Txn) error {
		key := entityKey(project, name)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, name)
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entity, err := decodeEntity(val, s.log, project)
		if err != nil {
			return err
		}

		fn(&entity)
		entity.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(entity)
		if err != nil {
			return err
		}
		if err := txn.Set(key, out); err != nil {
			return err
		}
		updated = &entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *BadgerStore) AddObservations(ctx context.Context, project string, observations []types.Observation) error {
	if err := types.ValidateProject(project); err != nil {
		return err
	}

	for _, obs := range observations {
		_, err := s.updateEntity(project, obs.EntityName, func(e *types.Entity) {
			have := make(map[string]bool, len(e.Observations))
			for _, o := range e.Observations {
				have[o] = true
			}
			for _, c := range obs.Contents {
				if !have[c] {
					have[c] = true
					e.Observations = append(e.Observations, c)
				}
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) AddTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}
	return s.updateEntity(project, name, func(e *types.Entity) {
		for _, tag := range tags {
			if !e.HasTag(tag) {
				e.Tags = append(e.Tags, tag)
			}
		}
	})
}

func (s *BadgerStore) RemoveTags(ctx context.Context, project, name string, tags []string) (*types.Entity, error) {
	if err := types.ValidateProject(project); err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(tags))
	for _, tag := range tags {
		drop[tag] = true
	}
	return s.updateEntity(project, name, func(e *types.Entity) {
		kept := e.Tags[:0]
		for _, tag := range e.Tags {
			if !drop[tag] {
				kept = append(kept, tag)
			}
		}
		e.Tags = kept
	})
}

func (s *BadgerStore) DeleteEntities(ctx context.Context, project string, names []string) error {
	if err := types.ValidateProject(project); err != nil {
		return err
	}

	gone := make(map[string]bool, len(names))
	for _, n := range names {
		gone[n] = true
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, name := range names {
			err := txn.Delete(entityKey(project, name))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		relations, err := s.loadRelations(txn, project)
		if err != nil {
			return err
		}
		kept := relations[:0]
		for _, r := range relations {
			if !gone[r.From] && !gone[r.To] {
				kept = append(kept, r)
			}
		}
		val, err := json.Marshal(kept)
		if err != nil {
			return err
		}
		return txn.Set(relationKey(project), val)
	})
	if err != nil {
		return fmt.Errorf("failed to delete entities: %w", err)
	}
	return nil
}

func (s *BadgerStore) DeleteRelations(ctx context.Context, project string, relations []types.Relation) error {
	if err := types.ValidateProject(project); err != nil {
		return err
	}

	drop := make(map[types.Relation]bool, len(relations))
	for _, r := range relations {
		drop[r] = true
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.loadRelations(txn, project)
		if err != nil {
			return err
		}
		kept := existing[:0]
		for _, r := range existing {
			if !drop[r] {
				kept = append(kept, r)
			}
		}
		val, err := json.Marshal(kept)
		if err != nil {
			return err
		}
		return txn.Set(relationKey(project), val)
	})
	if err != nil {
		return fmt.Errorf("failed to delete relations: %w", err)
	}
	return nil
}

func (s *BadgerStore) Projects(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(entityPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			rest := key[len(entityPrefix):]
			if i := bytes.IndexByte(rest, '|'); i > 0 {
				seen[string(rest[:i])] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]string, 0, len(seen))
	for p := range seen {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	return projects, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
