package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memkeeper/memkeeper/pkg/server/dto"
	"github.com/memkeeper/memkeeper/pkg/store"
	"github.com/memkeeper/memkeeper/pkg/types"
)

// writeError maps domain errors to HTTP statuses: validation failures are
// client errors, a missing entity is 404, everything else is a 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, types.ErrEmptyProject),
		errors.Is(err, types.ErrInvalidProject),
		errors.Is(err, types.ErrEmptyName),
		errors.Is(err, types.ErrEmptyRelation),
		errors.Is(err, types.ErrInvalidSearchMode),
		errors.Is(err, types.ErrInvalidThreshold),
		errors.Is(err, types.ErrInvalidTagMode),
		errors.Is(err, types.ErrInvalidPageRequest),
		errors.Is(err, dto.ErrQueryTooLong):
		status = http.StatusBadRequest
		code = "invalid_request"
	case errors.Is(err, store.ErrEntityNotFound):
		status = http.StatusNotFound
		code = "not_found"
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Code:    status,
	})
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}
