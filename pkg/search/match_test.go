package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkeeper/memkeeper/pkg/types"
)

func entity(name, entityType string, observations, tags []string) types.Entity {
	e := types.Entity{Name: name, EntityType: entityType, Observations: observations, Tags: tags}
	e.Normalize()
	return e
}

func names(entities []types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func TestMatchesExactAcrossFields(t *testing.T) {
	e := entity("JavaScript", "language", []string{"runs in browsers"}, []string{"web"})

	assert.True(t, matchesExact(&e, "script"), "name substring")
	assert.True(t, matchesExact(&e, "LANG"), "entity type, case-insensitive")
	assert.True(t, matchesExact(&e, "browser"), "observation substring")
	assert.True(t, matchesExact(&e, "web"), "tag substring")
	assert.False(t, matchesExact(&e, "python"))
	assert.True(t, matchesExact(&e, ""), "empty query matches everything")
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("JavaScript", "javascript"), "identical up to case")
	assert.Zero(t, similarity("", "anything"))
	assert.Greater(t, similarity("JavaScript", "JavaScrpt"), 0.5, "single dropped letter stays close")
	assert.Less(t, similarity("JavaScript", "Rust"), 0.2)
}

func TestFilterExactBatchUnion(t *testing.T) {
	entities := []types.Entity{
		entity("JavaScript", "language", nil, nil),
		entity("Python", "language", nil, nil),
		entity("Redis", "database", nil, nil),
	}

	got := filterExact(entities, []string{"JavaScript", "Python"})
	assert.Equal(t, []string{"JavaScript", "Python"}, names(got))

	// Union law: batch result equals dedup of the single-query results.
	single := append(filterExact(entities, []string{"JavaScript"}), filterExact(entities, []string{"Python"})...)
	assert.ElementsMatch(t, names(single), names(got))

	// Overlapping queries never duplicate a name.
	got = filterExact(entities, []string{"script", "java"})
	assert.Equal(t, []string{"JavaScript"}, names(got))
}

func TestFilterFuzzyChunkEquivalence(t *testing.T) {
	entities := make([]types.Entity, 0, 250)
	for i := 0; i < 250; i++ {
		name := fmt.Sprintf("widget-%03d", i)
		if i%5 == 0 {
			name = fmt.Sprintf("alpha-%03d", i)
		}
		entities = append(entities, entity(name, "item", nil, nil))
	}

	chunked := filterFuzzy(entities, []string{"alpha"}, 0.3, 50)
	unchunked := filterFuzzy(entities, []string{"alpha"}, 0.3, len(entities))

	require.NotEmpty(t, chunked)
	assert.ElementsMatch(t, names(unchunked), names(chunked),
		"chunked and non-chunked scans must produce the same match set")
}

func TestFilterFuzzyBatchDedup(t *testing.T) {
	entities := []types.Entity{
		entity("JavaScript", "language", nil, nil),
		entity("TypeScript", "language", nil, nil),
	}

	got := filterFuzzy(entities, []string{"javascript", "typescript"}, 0.3, 1000)
	assert.ElementsMatch(t, []string{"JavaScript", "TypeScript"}, names(got))

	// The same entity matched by both queries appears once.
	got = filterFuzzy(entities, []string{"javascript", "javascript"}, 0.3, 1000)
	counts := map[string]int{}
	for _, n := range names(got) {
		counts[n]++
	}
	for n, c := range counts {
		assert.Equal(t, 1, c, "entity %s duplicated", n)
	}
}

func TestFilterByTags(t *testing.T) {
	entities := []types.Entity{
		entity("A", "", nil, []string{"frontend"}),
		entity("B", "", nil, []string{"backend"}),
		entity("C", "", nil, []string{"frontend", "backend"}),
	}

	anyMode := FilterByTags(entities, []string{"frontend", "backend"}, types.TagMatchAny)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, names(anyMode))

	allMode := FilterByTags(entities, []string{"frontend", "backend"}, types.TagMatchAll)
	assert.Equal(t, []string{"C"}, names(allMode))

	// Subset law: all-mode is always a subset of any-mode.
	anySet := map[string]bool{}
	for _, n := range names(anyMode) {
		anySet[n] = true
	}
	for _, n := range names(allMode) {
		assert.True(t, anySet[n], "all-mode result %s missing from any-mode", n)
	}

	// Tags are case-sensitive.
	assert.Empty(t, FilterByTags(entities, []string{"Frontend"}, types.TagMatchAny))
}

func TestFilterRelations(t *testing.T) {
	entities := []types.Entity{entity("A", "", nil, nil), entity("B", "", nil, nil)}
	relations := []types.Relation{
		{From: "A", To: "B", RelationType: "uses"},
		{From: "A", To: "B", RelationType: "uses"}, // duplicate triple
		{From: "A", To: "C", RelationType: "uses"}, // endpoint outside result set
	}

	got := FilterRelations(relations, entities)
	require.Len(t, got, 1)
	assert.Equal(t, types.Relation{From: "A", To: "B", RelationType: "uses"}, got[0])
}
