package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memkeeper/memkeeper"
	"github.com/memkeeper/memkeeper/pkg/server/dto"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// GraphHandler handles graph read and mutation requests.
type GraphHandler struct {
	keeper memkeeper.Memkeeper
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(k memkeeper.Memkeeper) *GraphHandler {
	return &GraphHandler{keeper: k}
}

// ReadGraph handles GET /projects/:project/graph
func (h *GraphHandler) ReadGraph(c *gin.Context) {
	graph, err := h.keeper.ReadGraph(c.Request.Context(), c.Param("project"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

// ListProjects handles GET /projects
func (h *GraphHandler) ListProjects(c *gin.Context) {
	projects, err := h.keeper.Projects(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProjectsResponse{Projects: projects})
}

// CreateEntities handles POST /projects/:project/entities
func (h *GraphHandler) CreateEntities(c *gin.Context) {
	var req dto.CreateEntitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	entities := make([]types.Entity, 0, len(req.Entities))
	for _, p := range req.Entities {
		entities = append(entities, p.ToEntity())
	}

	created, err := h.keeper.CreateEntities(c.Request.Context(), c.Param("project"), entities)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entities": created})
}

// DeleteEntities handles DELETE /projects/:project/entities
func (h *GraphHandler) DeleteEntities(c *gin.Context) {
	var req dto.DeleteEntitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.keeper.DeleteEntities(c.Request.Context(), c.Param("project"), req.Names); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateRelations handles POST /projects/:project/relations
func (h *GraphHandler) CreateRelations(c *gin.Context) {
	var req dto.RelationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	created, err := h.keeper.CreateRelations(c.Request.Context(), c.Param("project"), req.Relations)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"relations": created})
}

// DeleteRelations handles DELETE /projects/:project/relations
func (h *GraphHandler) DeleteRelations(c *gin.Context) {
	var req dto.RelationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.keeper.DeleteRelations(c.Request.Context(), c.Param("project"), req.Relations); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddObservations handles POST /projects/:project/observations
func (h *GraphHandler) AddObservations(c *gin.Context) {
	var req dto.ObservationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.keeper.AddObservations(c.Request.Context(), c.Param("project"), req.Observations); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddTags handles POST /projects/:project/entities/:name/tags
func (h *GraphHandler) AddTags(c *gin.Context) {
	var req dto.TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	entity, err := h.keeper.AddTags(c.Request.Context(), c.Param("project"), c.Param("name"), req.Tags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// RemoveTags handles DELETE /projects/:project/entities/:name/tags
func (h *GraphHandler) RemoveTags(c *gin.Context) {
	var req dto.TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	entity, err := h.keeper.RemoveTags(c.Request.Context(), c.Param("project"), c.Param("name"), req.Tags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}
