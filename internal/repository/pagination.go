package repository

const (
	DefaultPage     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// PageRequest is 1-based. Out-of-range values are clamped, never rejected.
type PageRequest struct {
	Page     int
	PageSize int
}

type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

func newPageResult[T any](req PageRequest, items []T, total int64) PageResult[T] {
	pages := 0
	if total > 0 {
		pages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	return PageResult[T]{Items: items, Page: req.Page, PageSize: req.PageSize, Total: total, TotalPages: pages}
}

// WithItems keeps the paging metadata of p and swaps in items, e.g. view
// models built from p.Items.
func WithItems[T, U any](p PageResult[T], items []U) PageResult[U] {
	return PageResult[U]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: p.Total, TotalPages: p.TotalPages}
}
