package query

import (
	"net/url"
	"strings"

	"classifieds/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var adSortColumns = map[string]string{
	"createdAt": "a.created_at",
	"updatedAt": "a.updated_at",
	"price":     "a.price",
	"title":     "a.title",
}

// AdFilter holds the public ad listing parameters. Column references use the
// "a" alias for the ads table.
type AdFilter struct {
	Page
	Search     string
	CategoryID *uuid.UUID
	Location   string
	MinPrice   *float64
	MaxPrice   *float64
	Condition  *domain.Condition
	Sort       Sort
}

// ParseAdFilter reads GET /api/ads parameters.
func ParseAdFilter(values url.Values) AdFilter {
	f := AdFilter{
		Page:       ParsePage(values, DefaultLimit),
		Search:     stringParam(values, "search"),
		CategoryID: uuidParam(values, "categoryId"),
		Location:   stringParam(values, "location"),
		MinPrice:   floatParam(values, "minPrice"),
		MaxPrice:   floatParam(values, "maxPrice"),
		Sort:       parseSort(values, adSortColumns, "createdAt", SortOrderDesc),
	}

	if c := domain.Condition(strings.ToUpper(stringParam(values, "condition"))); c.Valid() {
		f.Condition = &c
	}

	return f
}

// Predicate returns the WHERE clause. Only active ads are listed.
func (f AdFilter) Predicate() sq.Sqlizer {
	where := sq.And{sq.Eq{"a.is_active": true}}

	if f.Search != "" {
		pattern := ContainsPattern(f.Search)
		where = append(where, sq.Or{
			sq.ILike{"a.title": pattern},
			sq.ILike{"a.description": pattern},
		})
	}
	if f.CategoryID != nil {
		where = append(where, sq.Eq{"a.category_id": *f.CategoryID})
	}
	if f.Location != "" {
		where = append(where, sq.ILike{"a.location": ContainsPattern(f.Location)})
	}
	if f.MinPrice != nil {
		where = append(where, sq.GtOrEq{"a.price": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		where = append(where, sq.LtOrEq{"a.price": *f.MaxPrice})
	}
	if f.Condition != nil {
		where = append(where, sq.Eq{"a.condition": string(*f.Condition)})
	}

	return where
}

// OwnerAdFilter lists the ads of one user, optionally by status.
type OwnerAdFilter struct {
	Page
	UserID   uuid.UUID
	IsActive *bool
}

// ParseOwnerAdFilter reads GET /api/ads/my-ads parameters; status is
// "active" or "inactive".
func ParseOwnerAdFilter(values url.Values, userID uuid.UUID) OwnerAdFilter {
	f := OwnerAdFilter{
		Page:   ParsePage(values, DefaultLimit),
		UserID: userID,
	}

	switch strings.ToLower(stringParam(values, "status")) {
	case "active":
		active := true
		f.IsActive = &active
	case "inactive":
		inactive := false
		f.IsActive = &inactive
	}

	return f
}

func (f OwnerAdFilter) Predicate() sq.Sqlizer {
	where := sq.And{sq.Eq{"a.user_id": f.UserID}}
	if f.IsActive != nil {
		where = append(where, sq.Eq{"a.is_active": *f.IsActive})
	}
	return where
}
