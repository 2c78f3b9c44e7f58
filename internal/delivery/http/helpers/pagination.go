package helpers

import (
	"net/http"
	"net/url"
	"strconv"

	"eventticketing/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = domain.DefaultPageSize
	MaxPageSize     = 100
)

// ParseEventListParams reads the paging and filter query of the event listing.
func ParseEventListParams(r *http.Request) domain.EventListParams {
	q := r.URL.Query()
	return domain.EventListParams{
		PaginationParams: parsePagination(q),
		ActiveOnly:       queryBool(q, "active"),
		UpcomingOnly:     queryBool(q, "upcoming"),
	}
}

// parsePagination reads page and page_size. Bad values fall back to the
// defaults and page_size is capped at MaxPageSize.
func parsePagination(q url.Values) domain.PaginationParams {
	return domain.PaginationParams{
		Page:     positiveInt(q, "page", DefaultPage),
		PageSize: min(positiveInt(q, "page_size", DefaultPageSize), MaxPageSize),
	}
}

func positiveInt(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// queryBool treats anything strconv cannot parse as false.
func queryBool(q url.Values, key string) bool {
	v, _ := strconv.ParseBool(q.Get(key))
	return v
}

// PaginationMeta accompanies every paginated list response.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta describes the page params selected out of total rows.
func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	size := params.Limit()
	return PaginationMeta{
		Page:       max(params.Page, DefaultPage),
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}
}
