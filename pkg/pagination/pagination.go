// Package pagination parses and validates page/size query parameters.
package pagination

import (
	"net/url"
	"strconv"

	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// Spec names the query parameters of one endpoint and its size limits.
type Spec struct {
	PageParam   string
	SizeParam   string
	DefaultSize int
	MaxSize     int
}

// Params is a validated page request.
type Params struct {
	Page    int
	PerPage int
}

// Offset is the number of rows preceding the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages is ceil(total / PerPage).
func (p Params) TotalPages(total int) int {
	if p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// Parse reads the page and size parameters. Absent values take defaults;
// malformed, non-positive or oversized values are INVALID_PARAMETER errors.
func Parse(q url.Values, spec Spec) (Params, error) {
	p := Params{Page: 1, PerPage: spec.DefaultSize}

	if raw := q.Get(spec.PageParam); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return Params{}, apperrors.InvalidArgument(spec.PageParam, "must be a positive integer")
		}
		p.Page = v
	}

	if raw := q.Get(spec.SizeParam); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return Params{}, apperrors.InvalidArgument(spec.SizeParam, "must be a positive integer")
		}
		if spec.MaxSize > 0 && v > spec.MaxSize {
			return Params{}, apperrors.InvalidArgument(spec.SizeParam, "must be at most "+strconv.Itoa(spec.MaxSize))
		}
		p.PerPage = v
	}

	return p, nil
}
