package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node of the two-level category tree. Root categories have a
// nil ParentID.
type Category struct {
	ID          uuid.UUID  `db:"id"`
	Name        string     `db:"name"`
	Description *string    `db:"description"`
	Icon        *string    `db:"icon"`
	ParentID    *uuid.UUID `db:"parent_id"`
	IsActive    bool       `db:"is_active"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryWithCounts is a category joined with its active-ad and active
// subcategory counts.
type CategoryWithCounts struct {
	Category
	ActiveAds     int `db:"active_ads_count"`
	Subcategories int `db:"subcategories_count"`
}

// CategoryNode is a root category with its nested active subcategories.
type CategoryNode struct {
	CategoryWithCounts
	Parent   *Category
	Children []CategoryWithCounts
}

// CategoryUpdate carries the optional fields of a partial category update.
// ParentSet distinguishes "leave parent unchanged" from "detach to root".
type CategoryUpdate struct {
	Name        *string
	Description *string
	Icon        *string
	ParentID    *uuid.UUID
	ParentSet   bool
	IsActive    *bool
}

// CategoryStats summarises the active category tree.
type CategoryStats struct {
	TotalCategories       int
	TotalAds              int
	ParentCategoriesCount int
	SubcategoriesCount    int
	Categories            []CategoryWithCounts
}
