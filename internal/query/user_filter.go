package query

import (
	"net/url"
	"strings"

	"classifieds/internal/domain"

	sq "github.com/Masterminds/squirrel"
)

var userSortColumns = map[string]string{
	"createdAt": "u.created_at",
	"name":      "u.name",
	"email":     "u.email",
	"lastLogin": "u.last_login",
}

// UserFilter holds the admin user listing parameters ("u" alias).
type UserFilter struct {
	Page
	Search   string
	Role     *domain.Role
	IsActive *bool
	Sort     Sort
}

// ParseUserFilter reads GET /api/users parameters.
func ParseUserFilter(values url.Values) UserFilter {
	f := UserFilter{
		Page:     ParsePage(values, DefaultLimit),
		Search:   stringParam(values, "search"),
		IsActive: boolParam(values, "isActive"),
		Sort:     parseSort(values, userSortColumns, "createdAt", SortOrderDesc),
	}

	if r := domain.Role(strings.ToUpper(stringParam(values, "role"))); r.Valid() {
		f.Role = &r
	}

	return f
}

func (f UserFilter) Predicate() sq.Sqlizer {
	where := sq.And{}

	if f.Search != "" {
		pattern := ContainsPattern(f.Search)
		where = append(where, sq.Or{
			sq.ILike{"u.name": pattern},
			sq.ILike{"u.email": pattern},
		})
	}
	if f.Role != nil {
		where = append(where, sq.Eq{"u.role": string(*f.Role)})
	}
	if f.IsActive != nil {
		where = append(where, sq.Eq{"u.is_active": *f.IsActive})
	}

	return where
}
