package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"classifieds/internal/domain"
	"classifieds/internal/query"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrAdNotFound      = errors.New("ad not found")
	ErrInvalidCategory = errors.New("category does not exist")
)

var adColumns = []string{
	"a.id", "a.title", "a.description", "a.price", "a.location", "a.condition",
	"a.category_id", "a.user_id", "a.is_active", "a.created_at", "a.updated_at",
}

var adDetailColumns = []string{
	"u.name AS owner_name",
	"u.phone AS owner_phone",
	"u.created_at AS owner_created_at",
	"(SELECT COUNT(*) FROM ads oa WHERE oa.user_id = a.user_id AND oa.is_active) AS owner_active_ads",
	"c.name AS category_name",
	"c.parent_id AS category_parent_id",
	"pc.name AS category_parent_name",
	"(SELECT COUNT(*) FROM favorites f WHERE f.ad_id = a.id) AS favorites_count",
	"(SELECT COUNT(*) FROM ad_views v WHERE v.ad_id = a.id) AS views_count",
}

// AdRepository defines the interface for ad data access
type AdRepository interface {
	Create(ctx context.Context, ad *domain.Ad, images []domain.AdImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Ad, error)
	FindDetails(ctx context.Context, id uuid.UUID) (*domain.AdDetails, error)
	List(ctx context.Context, filter query.AdFilter) ([]domain.AdDetails, int, error)
	ListByOwner(ctx context.Context, filter query.OwnerAdFilter) ([]domain.AdDetails, int, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, page query.Page) ([]domain.AdDetails, int, error)
	Update(ctx context.Context, id uuid.UUID, update domain.AdUpdate) (*domain.Ad, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordView(ctx context.Context, view *domain.AdView) error
}

type adRepository struct {
	db *sqlx.DB
}

// NewAdRepository creates a new instance of AdRepository
func NewAdRepository(db *sqlx.DB) AdRepository {
	return &adRepository{db: db}
}

func detailsSelect() sq.SelectBuilder {
	return psql.Select(adColumns...).
		Columns(adDetailColumns...).
		From("ads a").
		Join("users u ON u.id = a.user_id").
		Join("categories c ON c.id = a.category_id").
		LeftJoin("categories pc ON pc.id = c.parent_id")
}

// Create inserts the ad and its images in one transaction.
func (r *adRepository) Create(ctx context.Context, ad *domain.Ad, images []domain.AdImage) (err error) {
	ctx, span := startSpan(ctx, "AdRepository.Create")
	defer func() { endSpan(span, err) }()

	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		insertAd := psql.Insert("ads").
			Columns("id", "title", "description", "price", "location", "condition",
				"category_id", "user_id", "is_active", "created_at", "updated_at").
			Values(ad.ID, ad.Title, ad.Description, ad.Price, ad.Location, string(ad.Condition),
				ad.CategoryID, ad.UserID, ad.IsActive, ad.CreatedAt, ad.UpdatedAt)

		if _, err := exec(ctx, tx, insertAd); err != nil {
			if isForeignKeyViolation(err) {
				return ErrInvalidCategory
			}
			return fmt.Errorf("failed to create ad: %w", err)
		}

		if len(images) == 0 {
			return nil
		}

		insertImages := psql.Insert("ad_images").Columns("id", "ad_id", "url", "is_main", "created_at")
		for _, img := range images {
			insertImages = insertImages.Values(img.ID, ad.ID, img.URL, img.IsMain, img.CreatedAt)
		}
		if _, err := exec(ctx, tx, insertImages); err != nil {
			return fmt.Errorf("failed to create ad images: %w", err)
		}
		return nil
	})
	return err
}

func (r *adRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	ad := &domain.Ad{}
	err := getOne(ctx, r.db, ad, psql.Select(adColumns...).From("ads a").Where(sq.Eq{"a.id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to find ad by ID: %w", err)
	}
	return ad, nil
}

func (r *adRepository) FindDetails(ctx context.Context, id uuid.UUID) (ad *domain.AdDetails, err error) {
	ctx, span := startSpan(ctx, "AdRepository.FindDetails")
	span.SetAttributes(attribute.String("ad.id", id.String()))
	defer func() { endSpan(span, err) }()

	ad = &domain.AdDetails{}
	if err = getOne(ctx, r.db, ad, detailsSelect().Where(sq.Eq{"a.id": id})); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to find ad details: %w", err)
	}

	ads := []domain.AdDetails{*ad}
	if err = r.attachImages(ctx, ads); err != nil {
		return nil, err
	}
	return &ads[0], nil
}

func (r *adRepository) List(ctx context.Context, filter query.AdFilter) (ads []domain.AdDetails, total int, err error) {
	ctx, span := startSpan(ctx, "AdRepository.List")
	defer func() { endSpan(span, err) }()

	where := filter.Predicate()
	page := detailsSelect().
		Where(where).
		OrderBy(filter.Sort.Clause(), "a.id").
		Limit(uint64(filter.Limit)).
		Offset(filter.Offset())
	count := psql.Select("COUNT(*)").From("ads a").Where(where)

	return r.listPage(ctx, page, count)
}

func (r *adRepository) ListByOwner(ctx context.Context, filter query.OwnerAdFilter) (ads []domain.AdDetails, total int, err error) {
	ctx, span := startSpan(ctx, "AdRepository.ListByOwner")
	defer func() { endSpan(span, err) }()

	where := filter.Predicate()
	page := detailsSelect().
		Where(where).
		OrderBy("a.created_at DESC", "a.id").
		Limit(uint64(filter.Limit)).
		Offset(filter.Offset())
	count := psql.Select("COUNT(*)").From("ads a").Where(where)

	return r.listPage(ctx, page, count)
}

// ListFavorites returns the ads favorited by userID, newest favorite first.
// Inactive ads stay in the list.
func (r *adRepository) ListFavorites(ctx context.Context, userID uuid.UUID, p query.Page) (ads []domain.AdDetails, total int, err error) {
	ctx, span := startSpan(ctx, "AdRepository.ListFavorites")
	defer func() { endSpan(span, err) }()

	page := detailsSelect().
		Join("favorites fav ON fav.ad_id = a.id").
		Where(sq.Eq{"fav.user_id": userID}).
		OrderBy("fav.created_at DESC", "fav.id").
		Limit(uint64(p.Limit)).
		Offset(p.Offset())
	count := psql.Select("COUNT(*)").From("favorites fav").Where(sq.Eq{"fav.user_id": userID})

	return r.listPage(ctx, page, count)
}

func (r *adRepository) listPage(ctx context.Context, page, count sq.Sqlizer) ([]domain.AdDetails, int, error) {
	ads, total, err := fetchPage[domain.AdDetails](ctx, r.db, page, count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ads: %w", err)
	}
	if err := r.attachImages(ctx, ads); err != nil {
		return nil, 0, err
	}
	return ads, total, nil
}

// attachImages loads the images of all ads in one query, main image first.
func (r *adRepository) attachImages(ctx context.Context, ads []domain.AdDetails) error {
	if len(ads) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(ads))
	for _, ad := range ads {
		ids = append(ids, ad.ID)
	}

	images := []domain.AdImage{}
	err := selectAll(ctx, r.db, &images, psql.
		Select("id", "ad_id", "url", "is_main", "created_at").
		From("ad_images").
		Where(sq.Eq{"ad_id": ids}).
		OrderBy("is_main DESC", "created_at ASC"))
	if err != nil {
		return fmt.Errorf("failed to load ad images: %w", err)
	}

	byAd := make(map[uuid.UUID][]domain.AdImage, len(ads))
	for _, img := range images {
		byAd[img.AdID] = append(byAd[img.AdID], img)
	}
	for i := range ads {
		ads[i].Images = byAd[ads[i].ID]
		if ads[i].Images == nil {
			ads[i].Images = []domain.AdImage{}
		}
	}
	return nil
}

func (r *adRepository) Update(ctx context.Context, id uuid.UUID, update domain.AdUpdate) (*domain.Ad, error) {
	set := map[string]interface{}{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.CategoryID != nil {
		set["category_id"] = *update.CategoryID
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	if update.Condition != nil {
		set["condition"] = string(*update.Condition)
	}
	if update.IsActive != nil {
		set["is_active"] = *update.IsActive
	}

	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	ad := &domain.Ad{}
	err := getOne(ctx, r.db, ad, psql.Update("ads a").
		SetMap(set).
		Where(sq.Eq{"a.id": id}).
		Suffix("RETURNING "+strings.Join(adColumns, ", ")))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrAdNotFound
		case isForeignKeyViolation(err):
			return nil, ErrInvalidCategory
		}
		return nil, fmt.Errorf("failed to update ad: %w", err)
	}
	return ad, nil
}

// Delete removes the ad; images, favorites and views cascade.
func (r *adRepository) Delete(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := exec(ctx, r.db, psql.Delete("ads").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAdNotFound
	}
	return nil
}

func (r *adRepository) RecordView(ctx context.Context, view *domain.AdView) error {
	insert := psql.Insert("ad_views").
		Columns("id", "ad_id", "user_id", "ip_address", "created_at").
		Values(view.ID, view.AdID, nullableUUID(view.UserID), view.IPAddress, view.CreatedAt)

	if _, err := exec(ctx, r.db, insert); err != nil {
		if isForeignKeyViolation(err) {
			return ErrAdNotFound
		}
		return fmt.Errorf("failed to record ad view: %w", err)
	}
	return nil
}
