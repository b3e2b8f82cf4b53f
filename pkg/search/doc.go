// Package search implements the search and pagination core: a strategy
// abstraction hiding backend capability differences, a manager that selects
// the match mode and merges batched queries, and a pagination layer that
// behaves identically whether paging is pushed to the backend or performed
// in memory.
//
// Two strategy variants exist. The Postgres variant pushes exact and fuzzy
// matching down to pg_trgm; the Badger variant has no native matching and
// runs everything client-side over a bulk-loaded snapshot. Callers never
// observe which variant executed beyond ordering differences that are
// explicitly out of contract.
package search
