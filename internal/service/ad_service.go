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

// viewWriteTimeout bounds the detached view insert.
const viewWriteTimeout = 5 * time.Second

var (
	ErrAdNotFound         = domain.NewNotFound("Ad not found")
	ErrInvalidCategoryID  = domain.NewValidation("Invalid category ID")
	ErrNotAdOwnerUpdate   = domain.NewForbidden("Not authorized to update this ad")
	ErrNotAdOwnerDelete   = domain.NewForbidden("Not authorized to delete this ad")
	ErrFavoriteRace       = domain.NewConflict("Ad is already in favorites")
	ErrInvalidAdCondition = domain.NewValidation("Condition must be NEW, USED or REFURBISHED")
	ErrNegativeAdPrice    = domain.NewValidation("Price must be a positive number")
)

// ImageInput is one picture submitted with a new ad.
type ImageInput struct {
	URL    string
	IsMain bool
}

// AdInput is the data needed to publish an ad.
type AdInput struct {
	Title       string
	Description string
	Price       float64
	CategoryID  uuid.UUID
	Location    string
	Condition   domain.Condition
	Images      []ImageInput
}

// AdViewer identifies who opened an ad detail page. Principal is nil for
// anonymous visitors.
type AdViewer struct {
	Principal *domain.Principal
	IPAddress string
}

// FavoriteToggle reports the state of a favorite after a toggle.
type FavoriteToggle struct {
	IsFavorited bool
}

// AdService defines the listing, publishing and favorite operations on ads.
type AdService interface {
	List(ctx context.Context, filter query.AdFilter) (*query.Result[domain.AdDetails], error)
	ListMine(ctx context.Context, filter query.OwnerAdFilter) (*query.Result[domain.AdDetails], error)
	ListFavorites(ctx context.Context, userID uuid.UUID, page query.Page) (*query.Result[domain.AdDetails], error)
	GetByID(ctx context.Context, id uuid.UUID, viewer AdViewer) (*domain.AdDetails, error)
	Create(ctx context.Context, actor domain.Principal, input AdInput) (*domain.AdDetails, error)
	Update(ctx context.Context, actor domain.Principal, id uuid.UUID, update domain.AdUpdate) (*domain.AdDetails, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
	ToggleFavorite(ctx context.Context, actor domain.Principal, adID uuid.UUID) (*FavoriteToggle, error)
}

type adService struct {
	adRepo       repository.AdRepository
	categoryRepo repository.CategoryRepository
	favoriteRepo repository.FavoriteRepository
	now          func() time.Time
	logger       *zap.Logger
}

// NewAdService creates a new instance of AdService
func NewAdService(
	adRepo repository.AdRepository,
	categoryRepo repository.CategoryRepository,
	favoriteRepo repository.FavoriteRepository,
	logger *zap.Logger,
) AdService {
	return &adService{
		adRepo:       adRepo,
		categoryRepo: categoryRepo,
		favoriteRepo: favoriteRepo,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *adService) List(ctx context.Context, filter query.AdFilter) (*query.Result[domain.AdDetails], error) {
	ads, total, err := s.adRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	return query.NewResult(ads, filter.Page, total), nil
}

func (s *adService) ListMine(ctx context.Context, filter query.OwnerAdFilter) (*query.Result[domain.AdDetails], error) {
	ads, total, err := s.adRepo.ListByOwner(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ads: %w", err)
	}
	return query.NewResult(ads, filter.Page, total), nil
}

func (s *adService) ListFavorites(ctx context.Context, userID uuid.UUID, page query.Page) (*query.Result[domain.AdDetails], error) {
	ads, total, err := s.adRepo.ListFavorites(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return query.NewResult(ads, page, total), nil
}

// GetByID returns the ad detail and records a view unless the viewer owns
// the ad. The view is written in the background and never affects the
// response.
func (s *adService) GetByID(ctx context.Context, id uuid.UUID, viewer AdViewer) (*domain.AdDetails, error) {
	ad, err := s.adRepo.FindDetails(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAdNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}

	if viewer.Principal == nil || viewer.Principal.UserID != ad.UserID {
		s.recordView(ctx, ad.ID, viewer)
	}
	return ad, nil
}

func (s *adService) recordView(ctx context.Context, adID uuid.UUID, viewer AdViewer) {
	view := &domain.AdView{
		ID:        uuid.New(),
		AdID:      adID,
		IPAddress: viewer.IPAddress,
		CreatedAt: s.now().UTC(),
	}
	if viewer.Principal != nil {
		userID := viewer.Principal.UserID
		view.UserID = &userID
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, viewWriteTimeout)
		defer cancel()

		if err := s.adRepo.RecordView(ctx, view); err != nil {
			s.logger.Warn("Failed to record ad view",
				zap.String("ad_id", adID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *adService) Create(ctx context.Context, actor domain.Principal, input AdInput) (*domain.AdDetails, error) {
	if !input.Condition.Valid() {
		return nil, ErrInvalidAdCondition
	}
	if input.Price < 0 {
		return nil, ErrNegativeAdPrice
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ad := &domain.Ad{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Location:    strings.TrimSpace(input.Location),
		Condition:   input.Condition,
		CategoryID:  input.CategoryID,
		UserID:      actor.UserID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	images := buildImages(ad.ID, input.Images, now)

	if err := s.adRepo.Create(ctx, ad, images); err != nil {
		if errors.Is(err, repository.ErrInvalidCategory) {
			return nil, ErrInvalidCategoryID
		}
		return nil, fmt.Errorf("failed to create ad: %w", err)
	}

	s.logger.Info("Ad created",
		zap.String("ad_id", ad.ID.String()),
		zap.String("user_id", actor.UserID.String()),
	)

	return s.details(ctx, ad.ID)
}

// buildImages flags the first image, and any image submitted as main, as
// main.
func buildImages(adID uuid.UUID, inputs []ImageInput, now time.Time) []domain.AdImage {
	images := make([]domain.AdImage, 0, len(inputs))
	for i, in := range inputs {
		images = append(images, domain.AdImage{
			ID:        uuid.New(),
			AdID:      adID,
			URL:       in.URL,
			IsMain:    i == 0 || in.IsMain,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return images
}

func (s *adService) Update(ctx context.Context, actor domain.Principal, id uuid.UUID, update domain.AdUpdate) (*domain.AdDetails, error) {
	if _, err := s.authorize(ctx, actor, id, ErrNotAdOwnerUpdate); err != nil {
		return nil, err
	}

	if update.Condition != nil && !update.Condition.Valid() {
		return nil, ErrInvalidAdCondition
	}
	if update.Price != nil && *update.Price < 0 {
		return nil, ErrNegativeAdPrice
	}
	if update.CategoryID != nil {
		if err := s.ensureCategory(ctx, *update.CategoryID); err != nil {
			return nil, err
		}
	}

	if _, err := s.adRepo.Update(ctx, id, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrAdNotFound):
			return nil, ErrAdNotFound
		case errors.Is(err, repository.ErrInvalidCategory):
			return nil, ErrInvalidCategoryID
		}
		return nil, fmt.Errorf("failed to update ad: %w", err)
	}

	return s.details(ctx, id)
}

func (s *adService) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, id, ErrNotAdOwnerDelete); err != nil {
		return err
	}

	if err := s.adRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAdNotFound) {
			return ErrAdNotFound
		}
		return fmt.Errorf("failed to delete ad: %w", err)
	}

	s.logger.Info("Ad deleted",
		zap.String("ad_id", id.String()),
		zap.String("user_id", actor.UserID.String()),
	)
	return nil
}

// ToggleFavorite adds the ad to the actor's favorites, or removes it when it
// is already there.
func (s *adService) ToggleFavorite(ctx context.Context, actor domain.Principal, adID uuid.UUID) (*FavoriteToggle, error) {
	if _, err := s.adRepo.FindByID(ctx, adID); err != nil {
		if errors.Is(err, repository.ErrAdNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to find ad: %w", err)
	}

	exists, err := s.favoriteRepo.Exists(ctx, actor.UserID, adID)
	if err != nil {
		return nil, fmt.Errorf("failed to check favorite: %w", err)
	}

	if exists {
		if err := s.favoriteRepo.Remove(ctx, actor.UserID, adID); err != nil {
			if errors.Is(err, repository.ErrFavoriteNotFound) {
				return &FavoriteToggle{IsFavorited: false}, nil
			}
			return nil, fmt.Errorf("failed to remove favorite: %w", err)
		}
		return &FavoriteToggle{IsFavorited: false}, nil
	}

	favorite := &domain.Favorite{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		AdID:      adID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.favoriteRepo.Add(ctx, favorite); err != nil {
		switch {
		case errors.Is(err, repository.ErrFavoriteExists):
			return nil, ErrFavoriteRace
		case errors.Is(err, repository.ErrAdNotFound):
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return &FavoriteToggle{IsFavorited: true}, nil
}

// authorize loads the ad and lets only its owner or an admin through.
func (s *adService) authorize(ctx context.Context, actor domain.Principal, id uuid.UUID, denied error) (*domain.Ad, error) {
	ad, err := s.adRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAdNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to find ad: %w", err)
	}
	if !actor.CanManage(ad.UserID) {
		return nil, denied
	}
	return ad, nil
}

func (s *adService) ensureCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrInvalidCategoryID
		}
		return fmt.Errorf("failed to find category: %w", err)
	}
	return nil
}

func (s *adService) details(ctx context.Context, id uuid.UUID) (*domain.AdDetails, error) {
	ad, err := s.adRepo.FindDetails(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAdNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to load ad: %w", err)
	}
	return ad, nil
}
