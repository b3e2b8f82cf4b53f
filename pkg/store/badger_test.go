package store

import (
	"context"
	"log/slog"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkeeper/memkeeper/pkg/types"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndLoadEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEntities(ctx, "proj", []types.Entity{
		{Name: "JavaScript", EntityType: "language", Tags: []string{"web"}},
		{Name: "TypeScript", EntityType: "language", Tags: []string{"web", "typed"}},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	entities, err := s.LoadEntities(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, entities, 2)

	for _, e := range entities {
		assert.NotNil(t, e.Observations, "observations must be normalized to non-nil")
		assert.NotNil(t, e.Tags)
	}
}

func TestCreateEntitiesSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntities(ctx, "proj", []types.Entity{{Name: "A"}})
	require.NoError(t, err)

	created, err := s.CreateEntities(ctx, "proj", []types.Entity{{Name: "A"}, {Name: "B"}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "B", created[0].Name)
}

func TestProjectIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntities(ctx, "alpha", []types.Entity{{Name: "Only-In-Alpha"}})
	require.NoError(t, err)
	_, err = s.CreateEntities(ctx, "beta", []types.Entity{{Name: "Only-In-Beta"}})
	require.NoError(t, err)

	entities, err := s.LoadEntities(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Only-In-Alpha", entities[0].Name)

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, projects)
}

func TestInvalidProjectRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadEntities(ctx, "bad project!")
	assert.ErrorIs(t, err, types.ErrInvalidProject)

	_, err = s.CreateEntities(ctx, "", nil)
	assert.ErrorIs(t, err, types.ErrEmptyProject)
}

func TestRelationsDedupByTriple(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntities(ctx, "proj", []types.Entity{{Name: "A"}, {Name: "B"}})
	require.NoError(t, err)

	r := types.Relation{From: "A", To: "B", RelationType: "uses"}
	created, err := s.CreateRelations(ctx, "proj", []types.Relation{r, r})
	require.NoError(t, err)
	assert.Len(t, created, 1)

	created, err = s.CreateRelations(ctx, "proj", []types.Relation{r})
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestAddObservationsAndTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntities(ctx, "proj", []types.Entity{{Name: "A", Observations: []string{"first"}}})
	require.NoError(t, err)

	err = s.AddObservations(ctx, "proj", []types.Observation{
		{EntityName: "A", Contents: []string{"first", "second"}},
	})
	require.NoError(t, err)

	entity, err := s.AddTags(ctx, "proj", "A", []string{"web", "web"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, entity.Observations)
	assert.Equal(t, []string{"web"}, entity.Tags)

	entity, err = s.RemoveTags(ctx, "proj", "A", []string{"web"})
	require.NoError(t, err)
	assert.Empty(t, entity.Tags)

	err = s.AddObservations(ctx, "proj", []types.Observation{{EntityName: "missing", Contents: []string{"x"}}})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestDeleteEntitiesDropsTouchingRelations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntities(ctx, "proj", []types.Entity{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	require.NoError(t, err)
	_, err = s.CreateRelations(ctx, "proj", []types.Relation{
		{From: "A", To: "B", RelationType: "uses"},
		{From: "B", To: "C", RelationType: "uses"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEntities(ctx, "proj", []string{"A"}))

	graph, err := s.LoadGraph(ctx, "proj")
	require.NoError(t, err)
	assert.Len(t, graph.Entities, 2)
	require.Len(t, graph.Relations, 1)
	assert.Equal(t, "B", graph.Relations[0].From)
}

func TestMalformedStoredFieldRecovered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Simulate an external writer leaving a truncated tags array behind.
	key := entityKey("proj", "broken")
	val := []byte(`{"name":"broken","entityType":"t","observations":["ok"],"tags":["a","b"`)
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}))

	entities, err := s.LoadEntities(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "broken", entities[0].Name)
	assert.Equal(t, []string{"ok"}, entities[0].Observations)
	// Tags recovered by jsonrepair, or empty if unrepairable; never nil.
	assert.NotNil(t, entities[0].Tags)
}
