package services

import (
	"localvoice-be/models"
	"localvoice-be/store"
)

const (
	// MaxPageSize bounds enrichment fan-out cost per listing request
	MaxPageSize     = 100
	DefaultPageSize = 10
)

var sortableFields = map[string]bool{
	"createdAt": true,
	"votes":     true,
	"priority":  true,
	"views":     true,
}

// ListParams are the raw listing inputs as they arrive from the transport
// layer, before clamping and whitelisting.
type ListParams struct {
	Status         string
	Category       string
	Priority       string
	Language       string
	SortBy         string
	Order          string
	Page           int
	PageSize       int
	IncludeDeleted bool
}

// ListQuery is a store-ready query
type ListQuery struct {
	Filter store.Filter
	Sort   store.Sort
	Page   store.Page
}

// BuildListQuery normalises listing parameters: soft-deleted reports are
// excluded by default, the sort falls back to createdAt descending, the page
// is at least 1 and the page size is clamped to MaxPageSize. Unknown filter
// values are ignored rather than rejected.
func BuildListQuery(params ListParams) ListQuery {
	filter := store.Filter{
		Language:       params.Language,
		IncludeDeleted: params.IncludeDeleted,
	}
	if s := models.Status(params.Status); s.Valid() {
		filter.Status = &s
	}
	if c := models.Category(params.Category); c.Valid() {
		filter.Category = &c
	}
	if p := models.Priority(params.Priority); p.Valid() {
		filter.Priority = &p
	}

	sortField := params.SortBy
	if !sortableFields[sortField] {
		sortField = "createdAt"
	}
	descending := params.Order != "asc"

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return ListQuery{
		Filter: filter,
		Sort:   store.Sort{Field: sortField, Descending: descending},
		Page:   store.Page{Number: page, Size: size},
	}
}

// TotalPages computes the page count for a listing response
func TotalPages(totalCount int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((totalCount + int64(pageSize) - 1) / int64(pageSize))
}
