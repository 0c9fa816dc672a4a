package repository

import (
	"context"
	"strings"
	"testing"

	"classifieds/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository_NameExistsPerLevel(t *testing.T) {
	db := requireDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	root := newTestCategory(t, db, nil)
	child := newTestCategory(t, db, &root.ID)

	exists, err := repo.NameExists(ctx, strings.ToUpper(root.Name), nil, nil)
	require.NoError(t, err)
	assert.True(t, exists, "root names compare case-insensitively")

	exists, err = repo.NameExists(ctx, root.Name, nil, &root.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the category itself is excluded")

	exists, err = repo.NameExists(ctx, child.Name, nil, nil)
	require.NoError(t, err)
	assert.False(t, exists, "a subcategory name does not collide at root level")

	exists, err = repo.NameExists(ctx, child.Name, &root.ID, nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCategoryRepository_CountsAndChildren(t *testing.T) {
	db := requireDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db)
	root := newTestCategory(t, db, nil)
	child := newTestCategory(t, db, &root.ID)
	newTestAd(t, db, user.ID, child.ID, "In child")

	withCounts, err := repo.FindWithCounts(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, withCounts.Subcategories)
	assert.Equal(t, 0, withCounts.ActiveAds)

	children, err := repo.ListActiveChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
	assert.Equal(t, 1, children[0].ActiveAds)

	all, err := repo.ListActive(ctx)
	require.NoError(t, err)
	ids := map[uuid.UUID]bool{}
	for _, c := range all {
		ids[c.ID] = true
	}
	assert.True(t, ids[root.ID])
	assert.True(t, ids[child.ID])
}

func TestCategoryRepository_DeleteBlockedByReferences(t *testing.T) {
	db := requireDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db)
	root := newTestCategory(t, db, nil)
	child := newTestCategory(t, db, &root.ID)
	newTestAd(t, db, user.ID, child.ID, "Blocking ad")

	refs, err := repo.CountReferences(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, &CategoryReferences{Children: 1, Ads: 0}, refs)

	refs, err = repo.CountReferences(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, &CategoryReferences{Children: 0, Ads: 1}, refs)

	assert.ErrorIs(t, repo.Delete(ctx, root.ID), ErrCategoryInUse)
	assert.ErrorIs(t, repo.Delete(ctx, child.ID), ErrCategoryInUse)

	_, err = repo.FindByID(ctx, root.ID)
	assert.NoError(t, err, "category stays intact")
}

func TestCategoryRepository_UpdateDetachesParent(t *testing.T) {
	db := requireDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	root := newTestCategory(t, db, nil)
	child := newTestCategory(t, db, &root.ID)

	updated, err := repo.Update(ctx, child.ID, domain.CategoryUpdate{ParentSet: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)

	_, err = repo.Update(ctx, child.ID, domain.CategoryUpdate{ParentID: &child.ID, ParentSet: true})
	assert.Error(t, err, "self-parent is rejected by the store")

	require.NoError(t, repo.Delete(ctx, child.ID))
	_, err = repo.FindByID(ctx, child.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
