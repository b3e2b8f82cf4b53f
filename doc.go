// Package memkeeper provides a project-partitioned knowledge graph memory
// store for Go.
//
// Memkeeper stores entities and the directed relations between them, scoped
// to project namespaces so that independent bodies of knowledge never mix.
// It supports exact, fuzzy, and tag-based search with transparent pagination
// on top of either an embedded Badger store or a PostgreSQL server.
//
// # Basic Usage
//
// Create a client from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := memkeeper.NewClient(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Storing Knowledge
//
// Entities carry a name, a type, free-form observations, and exact-match
// tags:
//
//	entities := []types.Entity{
//		{
//			Name:         "JavaScript",
//			EntityType:   "programming_language",
//			Observations: []string{"dynamically typed", "runs in browsers"},
//			Tags:         []string{"web", "frontend"},
//		},
//	}
//
//	created, err := client.CreateEntities(ctx, "my-project", entities)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Relations connect entities by name:
//
//	relations := []types.Relation{
//		{From: "JavaScript", To: "V8", RelationType: "runs_on"},
//	}
//	_, err = client.CreateRelations(ctx, "my-project", relations)
//
// # Searching
//
// Search returns the matched entities plus the relations between them:
//
//	opts := types.SearchOptions{SearchMode: types.SearchModeFuzzy}
//	graph, err := client.Search(ctx, "my-project", []string{"javascrpt"}, opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, e := range graph.Entities {
//		fmt.Printf("Found entity: %s\n", e.Name)
//	}
//
// Multiple query terms are a batch: results are unioned and deduplicated,
// never intersected. Tag filters take precedence over text queries and match
// exactly, case-sensitively.
//
// # Pagination
//
// SearchPaginated returns one page plus an envelope describing the whole
// result:
//
//	req := types.PageRequest{Page: 0, PageSize: 20}
//	page, err := client.SearchPaginated(ctx, "my-project", []string{"web"}, req, opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d of %d entities\n", len(page.Entities), page.Pagination.TotalCount)
//
// On PostgreSQL the page is computed by the database; on Badger the full
// result is matched in memory and sliced. The envelope is identical either
// way.
//
// # Backends
//
// Two storage backends are supported:
//
//   - badger: embedded key/value store, zero external dependencies. Fuzzy
//     matching runs client-side over a bounded snapshot.
//   - postgres: server-side store using pg_trgm for native similarity
//     search and OFFSET/LIMIT for backend-pushed pagination.
//
// When a database-side search fails and fallback is enabled, the same query
// is re-run client-side; the caller sees results either way.
//
// # Architecture
//
//   - pkg/types: core type definitions and validation
//   - pkg/store: storage backends
//   - pkg/search: strategies, the search manager, and pagination
//   - pkg/config: configuration loading and limit validation
//   - pkg/server: HTTP API
//
// This design keeps backend selection in exactly one place; everything
// downstream works against capability interfaces.
package memkeeper
