package shared

import (
	"net/http"
	"strconv"

	"perfdash/internal/domain/apperr"
)

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from the query. A missing limit
// uses def and a larger one is clamped to maxLimit. Malformed or negative
// values are reported as field issues rather than silently replaced.
func ParsePagination(r *http.Request, def, maxLimit int) (Pagination, error) {
	page := Pagination{Limit: def}
	var v apperr.Validation
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("limit", "must be a positive integer")
		} else {
			page.Limit = min(n, maxLimit)
		}
	}
	if raw := query.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			v.Add("offset", "must be zero or a positive integer")
		} else {
			page.Offset = n
		}
	}
	return page, v.Err()
}
