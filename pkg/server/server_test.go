package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkeeper/memkeeper"
	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/logger"
	"github.com/memkeeper/memkeeper/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0, Mode: "test"},
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

	log := logger.NewDefaultLogger(slog.LevelError)
	client, err := memkeeper.NewClient(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	srv := New(cfg, client, log)
	srv.Setup()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func seedEntities(t *testing.T, srv *Server, project string) {
	t.Helper()

	w := doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+project+"/entities", body{
		"entities": []map[string]any{
			{"name": "JavaScript", "entityType": "language", "observations": []string{"runs in browsers"}, "tags": []string{"web"}},
			{"name": "TypeScript", "entityType": "language", "tags": []string{"web", "typed"}},
			{"name": "Python", "entityType": "language", "tags": []string{"backend"}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

type body = map[string]any

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))

	w = doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"), "an id is generated when none is supplied")
}

func TestCreateAndSearchRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	seedEntities(t, srv, "main")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/projects/main/search", body{"query": "script"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var graph types.KnowledgeGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Entities, 2)
}

func TestSearchPaginatedEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedEntities(t, srv, "main")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/projects/main/search/paginated", body{
		"exactTags": []string{"web"},
		"page":      0,
		"pageSize":  1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page types.PaginatedGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Entities, 1)
	assert.Equal(t, 2, page.Pagination.TotalCount)
	assert.True(t, page.Pagination.HasNextPage)
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/projects/bad%20project/search", body{"query": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/projects/main/search", body{"searchMode": "phonetic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/projects/main/search/paginated", body{"page": 0, "pageSize": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagEndpoints(t *testing.T) {
	srv := newTestServer(t)
	seedEntities(t, srv, "main")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/projects/main/entities/Python/tags", body{"tags": []string{"scripting"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entity types.Entity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entity))
	assert.Contains(t, entity.Tags, "scripting")

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/projects/main/entities/Python/tags", body{"tags": []string{"backend"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/projects/main/entities/NoSuch/tags", body{"tags": []string{"x"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEntitiesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedEntities(t, srv, "main")

	w := doJSON(t, srv, http.MethodDelete, "/api/v1/projects/main/entities", body{"names": []string{"Python"}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/projects/main/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var graph types.KnowledgeGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Entities, 2)
}
