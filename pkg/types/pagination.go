package types

import "fmt"

// PageRequest asks for one page of results. Page is zero-based.
type PageRequest struct {
	Page     int `json:"page" mapstructure:"page"`
	PageSize int `json:"pageSize" mapstructure:"page_size"`
}

// Validate rejects a malformed page request before any backend call.
// maxPageSize comes from configuration; a PageSize above it is rejected, not
// clamped, so the envelope never disagrees with what was asked for.
func (p PageRequest) Validate(maxPageSize int) error {
	if p.Page < 0 {
		return fmt.Errorf("%w: page must be >= 0, got %d", ErrInvalidPageRequest, p.Page)
	}
	if p.PageSize <= 0 {
		return fmt.Errorf("%w: pageSize must be >= 1, got %d", ErrInvalidPageRequest, p.PageSize)
	}
	if p.PageSize > maxPageSize {
		return fmt.Errorf("%w: pageSize must be <= %d, got %d", ErrInvalidPageRequest, maxPageSize, p.PageSize)
	}
	return nil
}

// Offset returns the item offset of the first element on the page.
func (p PageRequest) Offset() int {
	return p.Page * p.PageSize
}

// PageInfo is the pagination envelope attached to a paged result. Both the
// backend-pushed and the in-memory paging paths produce it with identical
// semantics.
type PageInfo struct {
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPageInfo derives the envelope from a request and the total match count.
func NewPageInfo(req PageRequest, totalCount int) PageInfo {
	totalPages := (totalCount + req.PageSize - 1) / req.PageSize
	return PageInfo{
		CurrentPage:     req.Page,
		PageSize:        req.PageSize,
		TotalCount:      totalCount,
		TotalPages:      totalPages,
		HasNextPage:     req.Page < totalPages-1,
		HasPreviousPage: req.Page > 0,
	}
}

// PaginatedGraph is one page of search results plus its envelope.
type PaginatedGraph struct {
	Entities   []Entity   `json:"entities"`
	Relations  []Relation `json:"relations"`
	Pagination PageInfo   `json:"pagination"`
}
