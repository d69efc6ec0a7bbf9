// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows in paged lists.
const PageSize = 50

// ParsePage extracts the 1-based "page" query parameter.
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Offset returns the number of rows before page.
func Offset(page int) int64 {
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * PageSize)
}

// Info describes the position of a page within a list.
type Info struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// Compute returns the Info of page for a list of total rows. An empty list
// still has one page.
func Compute(page int, total int64) Info {
	if page < 1 {
		page = 1
	}
	pages := int((total + PageSize - 1) / PageSize)
	if pages < 1 {
		pages = 1
	}
	return Info{
		Page:       page,
		TotalPages: pages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}
