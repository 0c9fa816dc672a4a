package query

import (
	"net/url"
)

// CategoryFilter holds the category tree listing parameters.
type CategoryFilter struct {
	IncludeSubcategories bool
}

// ParseCategoryFilter reads GET /api/categories parameters. Subcategories are
// included unless includeSubcategories is explicitly false.
func ParseCategoryFilter(values url.Values) CategoryFilter {
	f := CategoryFilter{IncludeSubcategories: true}
	if v := boolParam(values, "includeSubcategories"); v != nil {
		f.IncludeSubcategories = *v
	}
	return f
}
