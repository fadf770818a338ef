package pagination

import "strconv"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params is a normalized page request. Build it with New so the
// clamping rules hold everywhere.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// New clamps page to >= 1 and page_size to [1, MaxPageSize]. An explicit
// page_size of 0 clamps to 1; "not provided" defaulting is Parse's job.
func New(page, pageSize int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Params{Page: page, PageSize: pageSize}
}

// Parse builds Params from raw query values. Missing or non-numeric
// values fall back to the defaults; present values, 0 included, go
// through New's clamping.
func Parse(page, pageSize string) Params {
	p, err := strconv.Atoi(page)
	if err != nil {
		p = DefaultPage
	}
	size, err := strconv.Atoi(pageSize)
	if err != nil {
		size = DefaultPageSize
	}
	return New(p, size)
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p Params) Limit() int {
	return p.PageSize
}

// Result is one page of items plus the totals needed by clients to render
// pagination controls.
type Result[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewResult computes total_pages as ceil(total/page_size).
func NewResult[T any](items []T, total int64, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}
}
