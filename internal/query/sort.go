package query

import (
	"net/url"
	"strings"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// Sort is a whitelisted ORDER BY clause.
type Sort struct {
	Column string
	Order  SortOrder
}

// Clause renders the ORDER BY fragment.
func (s Sort) Clause() string {
	return s.Column + " " + string(s.Order)
}

// parseSort resolves sortBy through the allowed map (API field -> column) to
// keep user input out of the SQL text. Unknown fields fall back to defaultField.
func parseSort(values url.Values, allowed map[string]string, defaultField string, defaultOrder SortOrder) Sort {
	column, ok := allowed[stringParam(values, "sortBy")]
	if !ok {
		column = allowed[defaultField]
	}

	order := defaultOrder
	switch strings.ToLower(stringParam(values, "sortOrder")) {
	case "asc":
		order = SortOrderAsc
	case "desc":
		order = SortOrderDesc
	}

	return Sort{Column: column, Order: order}
}
