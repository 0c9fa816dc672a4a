package repository

import (
	"context"
	"errors"
	"fmt"

	"classifieds/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrFavoriteExists   = errors.New("ad is already in favorites")
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// FavoriteRepository defines the interface for favorite data access
type FavoriteRepository interface {
	Exists(ctx context.Context, userID, adID uuid.UUID) (bool, error)
	Add(ctx context.Context, favorite *domain.Favorite) error
	Remove(ctx context.Context, userID, adID uuid.UUID) error
}

type favoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository creates a new instance of FavoriteRepository
func NewFavoriteRepository(db *sqlx.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, adID uuid.UUID) (bool, error) {
	var exists bool
	err := getOne(ctx, r.db, &exists, psql.Select("COUNT(*) > 0").
		From("favorites").
		Where(sq.Eq{"user_id": userID, "ad_id": adID}))
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return exists, nil
}

// Add returns ErrFavoriteExists when the (user, ad) pair is already stored.
func (r *favoriteRepository) Add(ctx context.Context, favorite *domain.Favorite) error {
	insert := psql.Insert("favorites").
		Columns("id", "user_id", "ad_id", "created_at").
		Values(favorite.ID, favorite.UserID, favorite.AdID, favorite.CreatedAt)

	if _, err := exec(ctx, r.db, insert); err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrFavoriteExists
		case isForeignKeyViolation(err):
			return ErrAdNotFound
		}
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, adID uuid.UUID) error {
	rowsAffected, err := exec(ctx, r.db, psql.Delete("favorites").
		Where(sq.Eq{"user_id": userID, "ad_id": adID}))
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}
