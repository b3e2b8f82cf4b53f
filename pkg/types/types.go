package types

import (
	"errors"
	"regexp"
	"time"
)

// Validation errors
var (
	ErrEmptyName          = errors.New("entity name cannot be empty")
	ErrEmptyProject       = errors.New("project cannot be empty")
	ErrInvalidProject     = errors.New("project must match ^[a-zA-Z0-9_-]+$")
	ErrEmptyRelation      = errors.New("relation endpoints and type cannot be empty")
	ErrInvalidSearchMode  = errors.New("search mode must be \"exact\" or \"fuzzy\"")
	ErrInvalidThreshold   = errors.New("fuzzy threshold must be in (0, 1]")
	ErrInvalidTagMode     = errors.New("tag match mode must be \"any\" or \"all\"")
	ErrInvalidPageRequest = errors.New("invalid page request")
)

var projectRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateProject checks that a project name is a usable namespace string.
func ValidateProject(project string) error {
	if project == "" {
		return ErrEmptyProject
	}
	if !projectRe.MatchString(project) {
		return ErrInvalidProject
	}
	return nil
}

// Entity is a named node in a project's knowledge graph. Name is unique
// within a project. Observations and Tags are never nil once an entity has
// passed through the storage boundary.
type Entity struct {
	Name         string    `json:"name" mapstructure:"name"`
	EntityType   string    `json:"entityType" mapstructure:"entity_type"`
	Observations []string  `json:"observations" mapstructure:"observations"`
	Tags         []string  `json:"tags" mapstructure:"tags"`
	CreatedAt    time.Time `json:"createdAt,omitempty" mapstructure:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" mapstructure:"updated_at"`
}

// Normalize replaces nil collection fields with empty slices. Stores call
// this once per row on load so consumers never see null observations or tags.
func (e *Entity) Normalize() {
	if e.Observations == nil {
		e.Observations = []string{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

// Validate checks the fields required to persist an entity.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// HasTag reports whether the entity carries the exact (case-sensitive) tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Relation is a directed edge between two entity names in the same project.
// Its identity is the (From, To, RelationType) triple.
type Relation struct {
	From         string `json:"from" mapstructure:"from"`
	To           string `json:"to" mapstructure:"to"`
	RelationType string `json:"relationType" mapstructure:"relation_type"`
}

// Validate checks the fields required to persist a relation.
func (r *Relation) Validate() error {
	if r.From == "" || r.To == "" || r.RelationType == "" {
		return ErrEmptyRelation
	}
	return nil
}

// KnowledgeGraph is the entity/relation pair returned by reads and searches.
// Relations only reference entities present in Entities.
type KnowledgeGraph struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Observation pairs an entity name with observation contents, used by the
// add-observations operation.
type Observation struct {
	EntityName string   `json:"entityName" mapstructure:"entity_name"`
	Contents   []string `json:"contents" mapstructure:"contents"`
}
