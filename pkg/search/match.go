package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/memkeeper/memkeeper/pkg/types"
)

// matchesExact reports whether the query appears as a case-insensitive
// substring in the entity's name, type, any observation, or any tag. An
// empty query matches every entity; that is policy, not an accident.
func matchesExact(e *types.Entity, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(e.EntityType), q) {
		return true
	}
	for _, obs := range e.Observations {
		if strings.Contains(strings.ToLower(obs), q) {
			return true
		}
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// filterExact applies exact matching for each query in sequence, unioning
// results and deduplicating by entity name in first-match order.
func filterExact(entities []types.Entity, queries []string) []types.Entity {
	out := []types.Entity{}
	seen := make(map[string]bool)
	for _, q := range queries {
		for _, e := range entities {
			if !seen[e.Name] && matchesExact(&e, q) {
				seen[e.Name] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// trigrams extracts the trigram set of s the way pg_trgm does: lowercase,
// split on non-alphanumerics, pad each word with two leading and one
// trailing space. Matching pg_trgm keeps client-side scores comparable with
// the thresholds the database path uses.
func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// similarity returns the trigram similarity of two strings in [0, 1]:
// shared trigrams over total distinct trigrams.
func similarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// fuzzyScore is the entity's best similarity to the query across name,
// entity type, observations and tags.
func fuzzyScore(e *types.Entity, query string) float64 {
	best := similarity(e.Name, query)
	if s := similarity(e.EntityType, query); s > best {
		best = s
	}
	for _, obs := range e.Observations {
		if s := similarity(obs, query); s > best {
			best = s
		}
	}
	for _, tag := range e.Tags {
		if s := similarity(tag, query); s > best {
			best = s
		}
	}
	return best
}

type scoredEntity struct {
	entity types.Entity
	score  float64
}

// filterFuzzy runs client-side similarity matching in bounded-size chunks so
// peak memory tracks chunkSize, not the total entity count. The match set is
// identical to a non-chunked scan; only relative ordering across chunk
// boundaries is approximate.
func filterFuzzy(entities []types.Entity, queries []string, threshold float64, chunkSize int) []types.Entity {
	if chunkSize <= 0 {
		chunkSize = len(entities)
	}

	out := []types.Entity{}
	seen := make(map[string]bool)

	for start := 0; start < len(entities); start += chunkSize {
		end := min(start+chunkSize, len(entities))
		chunk := entities[start:end]

		for _, q := range queries {
			matches := make([]scoredEntity, 0)
			for _, e := range chunk {
				if score := fuzzyScore(&e, q); score >= threshold {
					matches = append(matches, scoredEntity{entity: e, score: score})
				}
			}
			sort.SliceStable(matches, func(i, j int) bool {
				return matches[i].score > matches[j].score
			})
			for _, m := range matches {
				if !seen[m.entity.Name] {
					seen[m.entity.Name] = true
					out = append(out, m.entity)
				}
			}
		}
	}
	return out
}

// FilterByTags evaluates the exact-match tag predicate: in "all" mode every
// tag must be present, otherwise at least one. Tags are case-sensitive.
func FilterByTags(entities []types.Entity, tags []string, mode types.TagMatchMode) []types.Entity {
	out := []types.Entity{}
	for _, e := range entities {
		if matchesTags(&e, tags, mode) {
			out = append(out, e)
		}
	}
	return out
}

func matchesTags(e *types.Entity, tags []string, mode types.TagMatchMode) bool {
	if mode == types.TagMatchAll {
		for _, tag := range tags {
			if !e.HasTag(tag) {
				return false
			}
		}
		return true
	}
	for _, tag := range tags {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

// FilterRelations keeps only relations whose both endpoints are in the
// entity set, deduplicated by the (from, to, relationType) triple.
func FilterRelations(relations []types.Relation, entities []types.Entity) []types.Relation {
	names := make(map[string]bool, len(entities))
	for _, e := range entities {
		names[e.Name] = true
	}

	out := []types.Relation{}
	seen := make(map[types.Relation]bool)
	for _, r := range relations {
		if names[r.From] && names[r.To] && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// dedupeByName unions entity lists in order, keeping the first occurrence of
// each name.
func dedupeByName(lists ...[]types.Entity) []types.Entity {
	out := []types.Entity{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, e := range list {
			if !seen[e.Name] {
				seen[e.Name] = true
				out = append(out, e)
			}
		}
	}
	return out
}
