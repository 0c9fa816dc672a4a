package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"
	"classifieds/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrCategoryNotFound     = domain.NewNotFound("Category not found")
	ErrParentNotFound       = domain.NewValidation("Parent category not found")
	ErrParentNotRoot        = domain.NewValidation("Parent category must be a top-level category")
	ErrSelfParent           = domain.NewValidation("Category cannot be its own parent")
	ErrCategoryHasChildren  = domain.NewValidation("Category with subcategories cannot become a subcategory")
	ErrCategoryNameTaken    = domain.NewConflict("Category with this name already exists at this level")
	ErrCategoryHasSubs      = domain.NewConflict("Cannot delete category with subcategories. Delete subcategories first.")
	ErrCategoryHasAds       = domain.NewConflict("Cannot delete category with existing ads. Move or delete ads first.")
	ErrCategoryNameRequired = domain.NewValidation("Category name is required")
)

// CategoryInput is the data needed to create a category.
type CategoryInput struct {
	Name        string
	Description *string
	Icon        *string
	ParentID    *uuid.UUID
}

// CategoryService defines the category tree operations.
type CategoryService interface {
	Tree(ctx context.Context, filter query.CategoryFilter) ([]domain.CategoryNode, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CategoryNode, error)
	Create(ctx context.Context, actor domain.Principal, input CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, actor domain.Principal, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
	Stats(ctx context.Context, actor domain.Principal) (*domain.CategoryStats, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	now          func() time.Time
	logger       *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categoryRepo repository.CategoryRepository, logger *zap.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		now:          time.Now,
		logger:       logger,
	}
}

// Tree returns the active root categories in name order, each with its
// active subcategories when the filter asks for them.
func (s *categoryService) Tree(ctx context.Context, filter query.CategoryFilter) ([]domain.CategoryNode, error) {
	categories, err := s.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return buildTree(categories, filter.IncludeSubcategories), nil
}

// buildTree keeps the input order for both roots and children. Children whose
// parent is not in the list are dropped.
func buildTree(categories []domain.CategoryWithCounts, withChildren bool) []domain.CategoryNode {
	roots := make([]domain.CategoryNode, 0)
	index := make(map[uuid.UUID]int)

	for _, c := range categories {
		if c.ParentID != nil {
			continue
		}
		index[c.ID] = len(roots)
		node := domain.CategoryNode{CategoryWithCounts: c}
		if withChildren {
			node.Children = make([]domain.CategoryWithCounts, 0)
		}
		roots = append(roots, node)
	}

	if !withChildren {
		return roots
	}

	for _, c := range categories {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			roots[i].Children = append(roots[i].Children, c)
		}
	}
	return roots
}

func (s *categoryService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CategoryNode, error) {
	category, err := s.categoryRepo.FindWithCounts(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if !category.IsActive {
		return nil, ErrCategoryNotFound
	}

	node := &domain.CategoryNode{CategoryWithCounts: *category}

	if category.ParentID != nil {
		parent, err := s.categoryRepo.FindByID(ctx, *category.ParentID)
		if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, fmt.Errorf("failed to get parent category: %w", err)
		}
		node.Parent = parent
	}

	children, err := s.categoryRepo.ListActiveChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	node.Children = children

	return node, nil
}

func (s *categoryService) Create(ctx context.Context, actor domain.Principal, input CategoryInput) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}

	if input.ParentID != nil {
		if err := s.checkParent(ctx, nil, *input.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.checkName(ctx, name, input.ParentID, nil); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		Icon:        input.Icon,
		ParentID:    input.ParentID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, ErrCategoryNameTaken
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, actor domain.Principal, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	parentID := existing.ParentID
	if update.ParentSet {
		parentID = update.ParentID
		if parentID != nil && !sameParent(existing.ParentID, parentID) {
			if err := s.checkParent(ctx, &id, *parentID); err != nil {
				return nil, err
			}
		}
	}

	name := existing.Name
	if update.Name != nil {
		name = strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrCategoryNameRequired
		}
		update.Name = &name
	}

	if name != existing.Name || !sameParent(existing.ParentID, parentID) {
		if err := s.checkName(ctx, name, parentID, &id); err != nil {
			return nil, err
		}
	}

	category, err := s.categoryRepo.Update(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, ErrCategoryNameTaken
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// Delete removes a category that has no subcategories and no ads, active or
// not.
func (s *categoryService) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	refs, err := s.categoryRepo.CountReferences(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to count category references: %w", err)
	}
	if refs.Children > 0 {
		return ErrCategoryHasSubs
	}
	if refs.Ads > 0 {
		return ErrCategoryHasAds
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryInUse):
			return ErrCategoryHasAds
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *categoryService) Stats(ctx context.Context, actor domain.Principal) (*domain.CategoryStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	categories, err := s.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	stats := &domain.CategoryStats{
		TotalCategories: len(categories),
		Categories:      categories,
	}
	for _, c := range categories {
		stats.TotalAds += c.ActiveAds
		if c.ParentID == nil {
			stats.ParentCategoriesCount++
		} else {
			stats.SubcategoriesCount++
		}
	}
	return stats, nil
}

// checkParent validates a new parent for the category being created (self is
// nil) or updated. Only root categories may have children.
func (s *categoryService) checkParent(ctx context.Context, self *uuid.UUID, parentID uuid.UUID) error {
	if self != nil && *self == parentID {
		return ErrSelfParent
	}

	parent, err := s.categoryRepo.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrParentNotFound
		}
		return fmt.Errorf("failed to find parent category: %w", err)
	}
	if !parent.IsRoot() {
		return ErrParentNotRoot
	}

	if self != nil {
		refs, err := s.categoryRepo.CountReferences(ctx, *self)
		if err != nil {
			return fmt.Errorf("failed to count subcategories: %w", err)
		}
		if refs.Children > 0 {
			return ErrCategoryHasChildren
		}
	}
	return nil
}

func (s *categoryService) checkName(ctx context.Context, name string, parentID, excludeID *uuid.UUID) error {
	exists, err := s.categoryRepo.NameExists(ctx, name, parentID, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if exists {
		return ErrCategoryNameTaken
	}
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
