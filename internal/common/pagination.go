package common

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset returns the number of rows to skip for the page. It saturates at math.MaxInt.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// ParsePagination extracts page and limit query parameters. Missing or invalid values
// fall back to page 1 and defaultLimit; limit is capped at maxLimit when positive and
// page is capped so the offset stays representable.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	p := Pagination{Page: AtoiDefault(q.Get("page"), 1), Limit: AtoiDefault(q.Get("limit"), defaultLimit)}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Limit > 0 && p.Page > math.MaxInt/p.Limit {
		p.Page = math.MaxInt / p.Limit
	}
	return p
}

// AtoiDefault parses value as a base-10 int, returning def when it is empty or invalid.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
