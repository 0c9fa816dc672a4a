package query

// Pagination is the page metadata returned with every listing.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

// NewPagination derives the metadata for page p of a result with total items.
func NewPagination(p Page, total int) Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}

	return Pagination{
		CurrentPage:  p.Page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: p.Limit,
		HasNext:      p.Page < totalPages,
		HasPrev:      p.Page > 1,
	}
}

// Result is one page of items plus its metadata.
type Result[T any] struct {
	Items      []T
	Pagination Pagination
}

// NewResult pairs items with the pagination for page p.
func NewResult[T any](items []T, p Page, total int) *Result[T] {
	if items == nil {
		items = []T{}
	}
	return &Result[T]{Items: items, Pagination: NewPagination(p, total)}
}

// Map converts the items of r, keeping the pagination.
func Map[T, U any](r *Result[T], fn func(*T) U) *Result[U] {
	out := make([]U, 0, len(r.Items))
	for i := range r.Items {
		out = append(out, fn(&r.Items[i]))
	}
	return &Result[U]{Items: out, Pagination: r.Pagination}
}
