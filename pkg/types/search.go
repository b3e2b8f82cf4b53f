package types

// SearchMode selects the text matching algorithm.
type SearchMode string

const (
	// SearchModeExact matches by case-insensitive substring across name,
	// entity type, observations and tags. This is the default.
	SearchModeExact SearchMode = "exact"

	// SearchModeFuzzy matches by trigram similarity above a threshold.
	SearchModeFuzzy SearchMode = "fuzzy"
)

// TagMatchMode selects how multiple exact tags combine.
type TagMatchMode string

const (
	// TagMatchAny matches entities carrying at least one of the tags.
	TagMatchAny TagMatchMode = "any"

	// TagMatchAll matches entities carrying every tag.
	TagMatchAll TagMatchMode = "all"
)

// SearchOptions controls a single search call. The zero value means exact
// mode, no tag filter, configured default threshold.
type SearchOptions struct {
	SearchMode SearchMode `json:"searchMode,omitempty" mapstructure:"search_mode"`

	// FuzzyThreshold overrides the configured default when > 0. Values
	// outside (0, 1] are rejected before any backend call.
	FuzzyThreshold float64 `json:"fuzzyThreshold,omitempty" mapstructure:"fuzzy_threshold"`

	// ExactTags, when non-empty, takes precedence over the text query:
	// only tag matching runs and the query is ignored.
	ExactTags []string `json:"exactTags,omitempty" mapstructure:"exact_tags"`

	TagMatchMode TagMatchMode `json:"tagMatchMode,omitempty" mapstructure:"tag_match_mode"`
}

// Validate rejects malformed option combinations before they reach a backend.
func (o *SearchOptions) Validate() error {
	switch o.SearchMode {
	case "", SearchModeExact, SearchModeFuzzy:
	default:
		return ErrInvalidSearchMode
	}
	if o.FuzzyThreshold != 0 && (o.FuzzyThreshold <= 0 || o.FuzzyThreshold > 1) {
		return ErrInvalidThreshold
	}
	switch o.TagMatchMode {
	case "", TagMatchAny, TagMatchAll:
	default:
		return ErrInvalidTagMode
	}
	return nil
}
