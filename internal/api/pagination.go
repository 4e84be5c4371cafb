package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// PageRequest selects one page of an incident list.
type PageRequest struct {
	Page    int
	PerPage int
}

// ParsePagination reads page and per_page from the query. Missing values
// default to page 1 of 50; per_page above 200 is clamped. Values that are not
// positive integers are reported per field, like validation errors.
func ParsePagination(r *http.Request) (PageRequest, map[string]string) {
	p := PageRequest{Page: 1, PerPage: defaultPerPage}
	errs := map[string]string{}

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs["page"] = "must be a positive integer"
		} else {
			p.Page = n
		}
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs["per_page"] = "must be a positive integer"
		} else {
			p.PerPage = min(n, maxPerPage)
		}
	}

	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

// Paginate returns the page of items selected by p and its metadata. A page
// past the end is empty, never nil.
func Paginate[T any](items []T, p PageRequest) ([]T, PaginationMeta) {
	p.Page = max(p.Page, 1)
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	total := len(items)
	meta := PaginationMeta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      int64(total),
		TotalPages: (total + p.PerPage - 1) / p.PerPage,
	}

	start := (p.Page - 1) * p.PerPage
	if start >= total {
		return []T{}, meta
	}
	end := min(start+p.PerPage, total)
	return items[start:end], meta
}
