package store

import (
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/memkeeper/memkeeper/pkg/types"
)

// storedEntity decouples the wire shape from types.Entity so a malformed
// observations or tags field can be recovered per row instead of failing the
// whole record.
type storedEntity struct {
	Name         string          `json:"name"`
	EntityType   string          `json:"entityType"`
	Observations json.RawMessage `json:"observations"`
	Tags         json.RawMessage `json:"tags"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt,omitempty"`
}

// decodeEntity turns a stored JSON value into an entity, recovering
// malformed observation or tag fields per row.
func decodeEntity(val []byte, log *slog.Logger, project string) (types.Entity, error) {
	var se storedEntity
	if err := json.Unmarshal(val, &se); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(val))
		if rerr != nil {
			return types.Entity{}, err
		}
		if err := json.Unmarshal([]byte(repaired), &se); err != nil {
			return types.Entity{}, err
		}
		log.Warn("repaired malformed stored entity", "project", project, "entity", se.Name)
	}

	return types.Entity{
		Name:         se.Name,
		EntityType:   se.EntityType,
		Observations: decodeStringList(se.Observations, log, project, se.Name, "observations"),
		Tags:         decodeStringList(se.Tags, log, project, se.Name, "tags"),
		CreatedAt:    se.CreatedAt,
		UpdatedAt:    se.UpdatedAt,
	}, nil
}

// decodeStringList parses a stored JSON array of strings. A malformed field
// is first run through jsonrepair; if it still does not parse it becomes an
// empty list and the load continues. One bad row never aborts a bulk load.
func decodeStringList(raw []byte, log *slog.Logger, project, entity, field string) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err == nil {
		if out == nil {
			return []string{}
		}
		return out
	}

	if repaired, err := jsonrepair.JSONRepair(string(raw)); err == nil {
		if err := json.Unmarshal([]byte(repaired), &out); err == nil && out != nil {
			log.Warn("repaired malformed stored field",
				"project", project, "entity", entity, "field", field)
			return out
		}
	}

	log.Warn("dropping unparseable stored field",
		"project", project, "entity", entity, "field", field)
	return []string{}
}

// sortEntities orders entities most recently updated first, then by name.
// Bulk loads rely on this ordering for pagination stability.
func sortEntities(entities []types.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if !entities[i].UpdatedAt.Equal(entities[j].UpdatedAt) {
			return entities[i].UpdatedAt.After(entities[j].UpdatedAt)
		}
		return entities[i].Name < entities[j].Name
	})
}
