package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"classifieds/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists at this level")
	ErrCategoryInUse         = errors.New("category is referenced by subcategories or ads")
)

var categoryColumns = []string{
	"c.id", "c.name", "c.description", "c.icon", "c.parent_id",
	"c.is_active", "c.created_at", "c.updated_at",
}

var categoryCountColumns = []string{
	"(SELECT COUNT(*) FROM ads WHERE ads.category_id = c.id AND ads.is_active) AS active_ads_count",
	"(SELECT COUNT(*) FROM categories s WHERE s.parent_id = c.id AND s.is_active) AS subcategories_count",
}

// CategoryReferences counts every row that blocks a category delete,
// regardless of active state.
type CategoryReferences struct {
	Children int `db:"children"`
	Ads      int `db:"ads"`
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindWithCounts(ctx context.Context, id uuid.UUID) (*domain.CategoryWithCounts, error)
	ListActive(ctx context.Context) ([]domain.CategoryWithCounts, error)
	ListActiveChildren(ctx context.Context, parentID uuid.UUID) ([]domain.CategoryWithCounts, error)
	NameExists(ctx context.Context, name string, parentID *uuid.UUID, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error)
	CountReferences(ctx context.Context, id uuid.UUID) (*CategoryReferences, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sqlx.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	insert := psql.Insert("categories").
		Columns("id", "name", "description", "icon", "parent_id", "is_active", "created_at", "updated_at").
		Values(category.ID, category.Name, category.Description, category.Icon, nullableUUID(category.ParentID),
			category.IsActive, category.CreatedAt, category.UpdatedAt)

	if _, err := exec(ctx, r.db, insert); err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrCategoryAlreadyExists
		case isForeignKeyViolation(err):
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category := &domain.Category{}
	err := getOne(ctx, r.db, category, psql.Select(categoryColumns...).
		From("categories c").
		Where(sq.Eq{"c.id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) FindWithCounts(ctx context.Context, id uuid.UUID) (*domain.CategoryWithCounts, error) {
	category := &domain.CategoryWithCounts{}
	err := getOne(ctx, r.db, category, psql.Select(categoryColumns...).Columns(categoryCountColumns...).
		From("categories c").
		Where(sq.Eq{"c.id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category with counts: %w", err)
	}
	return category, nil
}

// ListActive returns every active category, roots and subcategories, by name.
func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.CategoryWithCounts, error) {
	return r.list(ctx, sq.Eq{"c.is_active": true})
}

func (r *categoryRepository) ListActiveChildren(ctx context.Context, parentID uuid.UUID) ([]domain.CategoryWithCounts, error) {
	return r.list(ctx, sq.Eq{"c.is_active": true, "c.parent_id": parentID})
}

func (r *categoryRepository) list(ctx context.Context, where sq.Sqlizer) (categories []domain.CategoryWithCounts, err error) {
	ctx, span := startSpan(ctx, "CategoryRepository.List")
	defer func() { endSpan(span, err) }()

	categories = []domain.CategoryWithCounts{}
	err = selectAll(ctx, r.db, &categories, psql.Select(categoryColumns...).Columns(categoryCountColumns...).
		From("categories c").
		Where(where).
		OrderBy("c.name ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// NameExists reports whether another category at the same level already uses
// name, compared case-insensitively.
func (r *categoryRepository) NameExists(ctx context.Context, name string, parentID *uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	where := sq.And{
		sq.Expr("LOWER(c.name) = LOWER(?)", name),
		sq.Eq{"c.parent_id": nullableUUID(parentID)},
	}
	if excludeID != nil {
		where = append(where, sq.NotEq{"c.id": *excludeID})
	}

	var exists bool
	err := getOne(ctx, r.db, &exists, psql.Select("COUNT(*) > 0").From("categories c").Where(where))
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}

func (r *categoryRepository) Update(ctx context.Context, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error) {
	set := map[string]interface{}{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Icon != nil {
		set["icon"] = *update.Icon
	}
	if update.ParentSet {
		set["parent_id"] = nullableUUID(update.ParentID)
	}
	if update.IsActive != nil {
		set["is_active"] = *update.IsActive
	}

	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	category := &domain.Category{}
	err := getOne(ctx, r.db, category, psql.Update("categories c").
		SetMap(set).
		Where(sq.Eq{"c.id": id}).
		Suffix("RETURNING "+strings.Join(categoryColumns, ", ")))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), isForeignKeyViolation(err):
			return nil, ErrCategoryNotFound
		case isUniqueViolation(err):
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) CountReferences(ctx context.Context, id uuid.UUID) (*CategoryReferences, error) {
	refs := &CategoryReferences{}
	err := getOne(ctx, r.db, refs, psql.Select().
		Column(sq.Expr("(SELECT COUNT(*) FROM categories WHERE parent_id = ?) AS children", id)).
		Column(sq.Expr("(SELECT COUNT(*) FROM ads WHERE category_id = ?) AS ads", id)))
	if err != nil {
		return nil, fmt.Errorf("failed to count category references: %w", err)
	}
	return refs, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := exec(ctx, r.db, psql.Delete("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
