package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"
	"classifieds/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileAdsLimit is the default page size of the ads on a public profile.
const ProfileAdsLimit = 12

// registrationTrendDays is the width of the registration trend window.
const registrationTrendDays = 30

const minPasswordLength = 6

var (
	ErrUserNotFound     = domain.NewNotFound("User not found")
	ErrEmailInUse       = domain.NewConflict("Email already in use")
	ErrUserHasAds       = domain.NewValidation("Cannot delete user with existing ads. Deactivate ads first.")
	ErrUserHasMessages  = domain.NewValidation("Cannot delete user with message history. Consider deactivating instead.")
	ErrPasswordTooShort = domain.NewValidation("Password must be at least 6 characters long")
	ErrAdminRequired    = domain.NewForbidden("Admin access required")
)

// UserInput is an admin edit of a user account. Nil fields are left as is.
type UserInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Role     *domain.Role
	IsActive *bool
}

// PublicProfile is a user's public data plus a page of their active ads.
type PublicProfile struct {
	User *domain.UserWithCounts
	Ads  *query.Result[domain.AdDetails]
}

// UserService defines the user directory and the admin operations on accounts.
type UserService interface {
	List(ctx context.Context, actor domain.Principal, filter query.UserFilter) (*query.Result[domain.UserWithCounts], error)
	Stats(ctx context.Context, actor domain.Principal) (*domain.UserStats, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*domain.UserWithCounts, error)
	Profile(ctx context.Context, id uuid.UUID, page query.Page) (*PublicProfile, error)
	Update(ctx context.Context, actor domain.Principal, id uuid.UUID, input UserInput) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
	ToggleStatus(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.User, error)
	ResetPassword(ctx context.Context, actor domain.Principal, id uuid.UUID, newPassword string) error
}

type userService struct {
	userRepo         repository.UserRepository
	adRepo           repository.AdRepository
	refreshTokenRepo repository.RefreshTokenRepository
	bcryptCost       int
	now              func() time.Time
	logger           *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	adRepo repository.AdRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:         userRepo,
		adRepo:           adRepo,
		refreshTokenRepo: refreshTokenRepo,
		bcryptCost:       BcryptCost,
		now:              time.Now,
		logger:           logger,
	}
}

func requireAdmin(actor domain.Principal) error {
	if !actor.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

func (s *userService) List(ctx context.Context, actor domain.Principal, filter query.UserFilter) (*query.Result[domain.UserWithCounts], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return query.NewResult(users, filter.Page, total), nil
}

// Stats computes the dashboard counters. Day and month boundaries are taken
// in UTC.
func (s *userService) Stats(ctx context.Context, actor domain.Principal) (*domain.UserStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	stats, err := s.userRepo.Stats(ctx, statsWindow(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}
	return stats, nil
}

func statsWindow(now time.Time) repository.UserStatsWindow {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return repository.UserStatsWindow{
		DayStart:   dayStart,
		MonthStart: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		TrendStart: dayStart.AddDate(0, 0, -registrationTrendDays),
	}
}

func (s *userService) GetPublic(ctx context.Context, id uuid.UUID) (*domain.UserWithCounts, error) {
	user, err := s.userRepo.FindWithCounts(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) Profile(ctx context.Context, id uuid.UUID, page query.Page) (*PublicProfile, error) {
	user, err := s.GetPublic(ctx, id)
	if err != nil {
		return nil, err
	}

	active := true
	ads, total, err := s.adRepo.ListByOwner(ctx, query.OwnerAdFilter{
		Page:     page,
		UserID:   id,
		IsActive: &active,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profile ads: %w", err)
	}

	return &PublicProfile{User: user, Ads: query.NewResult(ads, page, total)}, nil
}

func (s *userService) Update(ctx context.Context, actor domain.Principal, id uuid.UUID, input UserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	update := domain.UserUpdate{
		Name:     emptyToNil(input.Name),
		Phone:    emptyToNil(input.Phone),
		Role:     input.Role,
		IsActive: input.IsActive,
	}

	if email := emptyToNil(input.Email); email != nil {
		normalized := NormalizeEmail(*email)
		if normalized != existing.Email {
			taken, err := s.userRepo.FindByEmail(ctx, normalized)
			if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if taken != nil {
				return nil, ErrEmailInUse
			}
			update.Email = &normalized
		}
	}

	if update.Role != nil && !update.Role.Valid() {
		return nil, domain.NewValidation("Role must be USER or ADMIN")
	}

	user, err := s.userRepo.Update(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrUserAlreadyExists):
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Delete removes an account that owns no ads and has no message history.
func (s *userService) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	user, err := s.userRepo.FindWithCounts(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.Ads > 0 {
		return ErrUserHasAds
	}
	if user.SentMessages > 0 || user.ReceivedMessages > 0 {
		return ErrUserHasMessages
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("User deleted",
		zap.String("user_id", id.String()),
		zap.String("admin_id", actor.UserID.String()),
	)
	return nil
}

// ToggleStatus flips the active flag. Deactivation also revokes the user's
// refresh tokens.
func (s *userService) ToggleStatus(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	active := !user.IsActive
	updated, err := s.userRepo.Update(ctx, id, domain.UserUpdate{IsActive: &active})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to toggle user status: %w", err)
	}

	if !active {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, id); err != nil {
			s.logger.Warn("Failed to revoke refresh tokens of deactivated user",
				zap.String("user_id", id.String()),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

func (s *userService) ResetPassword(ctx context.Context, actor domain.Principal, id uuid.UUID, newPassword string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	hashedPassword, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, id, hashedPassword); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, id); err != nil {
		s.logger.Warn("Failed to revoke refresh tokens after password reset",
			zap.String("user_id", id.String()),
			zap.Error(err),
		)
	}
	return nil
}
