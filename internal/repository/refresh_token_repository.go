package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classifieds/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
)

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type refreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sqlx.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	insert := psql.Insert("refresh_tokens").
		Columns("id", "user_id", "token", "expires_at", "created_at", "revoked").
		Values(token.ID, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt, token.Revoked)

	if _, err := exec(ctx, r.db, insert); err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// FindByToken returns ErrRefreshTokenRevoked for tokens that exist but were revoked.
func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken := &domain.RefreshToken{}
	err := getOne(ctx, r.db, refreshToken, psql.
		Select("id", "user_id", "token", "expires_at", "created_at", "revoked").
		From("refresh_tokens").
		Where(sq.Eq{"token": token}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	if refreshToken.Revoked {
		return nil, ErrRefreshTokenRevoked
	}

	return refreshToken, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	rowsAffected, err := exec(ctx, r.db, psql.Update("refresh_tokens").
		Set("revoked", true).
		Where(sq.Eq{"token": token}))
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// RevokeAllForUser revokes every outstanding token of the user, e.g. after a
// password change.
func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := exec(ctx, r.db, psql.Update("refresh_tokens").
		Set("revoked", true).
		Where(sq.Eq{"user_id": userID, "revoked": false}))
	if err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}
	return nil
}
