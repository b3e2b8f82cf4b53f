package dto

import (
	"errors"
	"strings"

	"github.com/memkeeper/memkeeper/pkg/types"
)

// MaxQueryLength bounds a single search term.
const MaxQueryLength = 1024

// ErrQueryTooLong is returned when a search term exceeds MaxQueryLength.
var ErrQueryTooLong = errors.New("query exceeds maximum length")

// EntityPayload is the wire form of an entity in create requests.
type EntityPayload struct {
	Name         string   `json:"name" binding:"required"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
	Tags         []string `json:"tags"`
}

// ToEntity converts the payload to the domain type.
func (p *EntityPayload) ToEntity() types.Entity {
	e := types.Entity{
		Name:         p.Name,
		EntityType:   p.EntityType,
		Observations: p.Observations,
		Tags:         p.Tags,
	}
	e.Normalize()
	return e
}

// CreateEntitiesRequest is the body of POST /entities.
type CreateEntitiesRequest struct {
	Entities []EntityPayload `json:"entities" binding:"required"`
}

// RelationsRequest is the body of relation create and delete calls.
type RelationsRequest struct {
	Relations []types.Relation `json:"relations" binding:"required"`
}

// ObservationsRequest is the body of POST /observations.
type ObservationsRequest struct {
	Observations []types.Observation `json:"observations" binding:"required"`
}

// TagsRequest is the body of tag add and remove calls.
type TagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// DeleteEntitiesRequest is the body of DELETE /entities.
type DeleteEntitiesRequest struct {
	Names []string `json:"names" binding:"required"`
}

// SearchRequest is the body of POST /search and /search/paginated. Query
// and Queries are alternatives; when both are set, Query is prepended.
type SearchRequest struct {
	Query          string   `json:"query"`
	Queries        []string `json:"queries"`
	SearchMode     string   `json:"searchMode"`
	FuzzyThreshold float64  `json:"fuzzyThreshold"`
	ExactTags      []string `json:"exactTags"`
	TagMatchMode   string   `json:"tagMatchMode"`

	// Pagination fields, only read by the paginated endpoint.
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Terms merges the single-query and batch fields into one term list.
func (r *SearchRequest) Terms() []string {
	terms := r.Queries
	if strings.TrimSpace(r.Query) != "" {
		terms = append([]string{r.Query}, terms...)
	}
	return terms
}

// Options converts the request to domain search options.
func (r *SearchRequest) Options() types.SearchOptions {
	return types.SearchOptions{
		SearchMode:     types.SearchMode(r.SearchMode),
		FuzzyThreshold: r.FuzzyThreshold,
		ExactTags:      r.ExactTags,
		TagMatchMode:   types.TagMatchMode(r.TagMatchMode),
	}
}

// Validate performs wire-level validation; domain validation happens in the
// search layer.
func (r *SearchRequest) Validate() error {
	for _, q := range r.Terms() {
		if len(q) > MaxQueryLength {
			return ErrQueryTooLong
		}
	}
	return nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// ProjectsResponse is the body of GET /projects.
type ProjectsResponse struct {
	Projects []string `json:"projects"`
}
