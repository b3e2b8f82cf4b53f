package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memkeeper/memkeeper"
	"github.com/memkeeper/memkeeper/pkg/server/dto"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// SearchHandler handles search requests.
type SearchHandler struct {
	keeper memkeeper.Memkeeper
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(k memkeeper.Memkeeper) *SearchHandler {
	return &SearchHandler{keeper: k}
}

// Search handles POST /projects/:project/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	graph, err := h.keeper.Search(c.Request.Context(), c.Param("project"), req.Terms(), req.Options())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

// SearchPaginated handles POST /projects/:project/search/paginated
func (h *SearchHandler) SearchPaginated(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	pageReq := types.PageRequest{Page: req.Page, PageSize: req.PageSize}
	page, err := h.keeper.SearchPaginated(c.Request.Context(), c.Param("project"), req.Terms(), pageReq, req.Options())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
