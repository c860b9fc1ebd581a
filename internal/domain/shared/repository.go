package shared

// Paginated is one page of a listing together with the totals a client
// needs to page through the rest.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	p := Paginated[T]{Items: items, Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		size := int64(pageSize)
		p.TotalPages = int((total + size - 1) / size)
	}
	return p
}

// PageBounds returns the half-open slice bounds of 1-based page over n
// items. Pages past the end are empty.
func PageBounds(n, page, pageSize int) (start, end int) {
	if page < 1 || pageSize < 1 {
		return 0, 0
	}
	start = min((page-1)*pageSize, n)
	return start, min(start+pageSize, n)
}
