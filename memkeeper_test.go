package memkeeper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "badger", URI: ":memory:"},
		Search: config.SearchConfig{
			MaxResults:        100,
			BatchSize:         10,
			MaxClientEntities: 10000,
			ChunkSize:         1000,
			FuzzyThreshold:    0.3,
			FallbackEnabled:   true,
			MaxPageSize:       100,
		},
	}

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedGraph(t *testing.T, client *Client, project string) {
	t.Helper()

	_, err := client.CreateEntities(context.Background(), project, []types.Entity{
		{Name: "JavaScript", EntityType: "language", Observations: []string{"runs in browsers"}, Tags: []string{"web"}},
		{Name: "TypeScript", EntityType: "language", Observations: []string{"typed superset of JavaScript"}, Tags: []string{"web", "typed"}},
		{Name: "V8", EntityType: "engine", Tags: []string{"web"}},
		{Name: "Python", EntityType: "language", Tags: []string{"backend"}},
	})
	require.NoError(t, err)

	_, err = client.CreateRelations(context.Background(), project, []types.Relation{
		{From: "JavaScript", To: "V8", RelationType: "runs_on"},
		{From: "TypeScript", To: "JavaScript", RelationType: "compiles_to"},
		{From: "Python", To: "V8", RelationType: "unrelated_to"},
	})
	require.NoError(t, err)
}

func entityNames(entities []types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func TestClientSearchReturnsSubgraph(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "main")

	graph, err := client.Search(context.Background(), "main", []string{"script"}, types.SearchOptions{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"JavaScript", "TypeScript"}, entityNames(graph.Entities))
	// Only the relation with both endpoints in the result survives.
	require.Len(t, graph.Relations, 1)
	assert.Equal(t, types.Relation{From: "TypeScript", To: "JavaScript", RelationType: "compiles_to"}, graph.Relations[0])
}

func TestClientSearchFuzzyToleratesTypos(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "main")

	opts := types.SearchOptions{SearchMode: types.SearchModeFuzzy}
	graph, err := client.Search(context.Background(), "main", []string{"javascrpt"}, opts)
	require.NoError(t, err)
	require.NotEmpty(t, graph.Entities)
	assert.Equal(t, "JavaScript", graph.Entities[0].Name)
}

func TestClientSearchTagFilter(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "main")

	opts := types.SearchOptions{ExactTags: []string{"web", "typed"}, TagMatchMode: types.TagMatchAll}
	graph, err := client.Search(context.Background(), "main", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"TypeScript"}, entityNames(graph.Entities))
}

func TestClientProjectIsolation(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "alpha")

	graph, err := client.ReadGraph(context.Background(), "beta")
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
	assert.Empty(t, graph.Relations)

	graph, err = client.Search(context.Background(), "beta", []string{"script"}, types.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)

	projects, err := client.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, projects)
}

func TestClientSearchPaginated(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "main")

	req := types.PageRequest{Page: 0, PageSize: 2}
	opts := types.SearchOptions{ExactTags: []string{"web"}}
	page, err := client.SearchPaginated(context.Background(), "main", nil, req, opts)
	require.NoError(t, err)

	assert.Len(t, page.Entities, 2)
	assert.Equal(t, 3, page.Pagination.TotalCount)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNextPage)
	assert.False(t, page.Pagination.HasPreviousPage)

	req.Page = 1
	page, err = client.SearchPaginated(context.Background(), "main", nil, req, opts)
	require.NoError(t, err)
	assert.Len(t, page.Entities, 1)
	assert.False(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPreviousPage)
}

func TestClientDeleteEntityCascades(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "main")

	err := client.DeleteEntities(context.Background(), "main", []string{"V8"})
	require.NoError(t, err)

	graph, err := client.ReadGraph(context.Background(), "main")
	require.NoError(t, err)
	assert.NotContains(t, entityNames(graph.Entities), "V8")
	for _, r := range graph.Relations {
		assert.NotEqual(t, "V8", r.From)
		assert.NotEqual(t, "V8", r.To)
	}
}

func TestClientTagLifecycle(t *testing.T) {
	client := newTestClient(t)
	seedGraph(t, client, "main")

	e, err := client.AddTags(context.Background(), "main", "Python", []string{"scripting", "backend"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backend", "scripting"}, e.Tags)

	e, err = client.RemoveTags(context.Background(), "main", "Python", []string{"backend"})
	require.NoError(t, err)
	assert.Equal(t, []string{"scripting"}, e.Tags)
}

func TestClientRejectsInvalidProject(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Search(context.Background(), "not a project!", []string{"x"}, types.SearchOptions{})
	assert.ErrorIs(t, err, types.ErrInvalidProject)

	_, err = client.SearchPaginated(context.Background(), "not a project!", nil, types.PageRequest{PageSize: 10}, types.SearchOptions{})
	assert.ErrorIs(t, err, types.ErrInvalidProject)
}

func TestClientUnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}
	_, err := NewClient(cfg, nil)
	assert.Error(t, err)
}
