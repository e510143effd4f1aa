package domain

// QueryRequest carries the raw, unvalidated listing parameters of one request.
// Column and direction strings are resolved against the column allow-list
// before they reach any query.
type QueryRequest struct {
	SortColumn    string
	SortDirection string
	SearchColumn  string
	SearchKeyword string
	Page          int
	PageSize      int
}

// PageResult is one window of a sorted, filtered listing.
type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// HasPrev reports whether a page exists before the current one.
func (p *PageResult[T]) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a page exists after the current one.
func (p *PageResult[T]) HasNext() bool {
	return p.Page < p.TotalPages
}
