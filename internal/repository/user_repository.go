package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
)

var userColumns = []string{
	"u.id", "u.name", "u.email", "u.password_hash", "u.phone", "u.role",
	"u.is_active", "u.last_login", "u.created_at", "u.updated_at",
}

var userCountColumns = []string{
	"(SELECT COUNT(*) FROM ads WHERE ads.user_id = u.id) AS ads_count",
	"(SELECT COUNT(*) FROM ads WHERE ads.user_id = u.id AND ads.is_active) AS active_ads_count",
	"(SELECT COUNT(*) FROM messages WHERE messages.sender_id = u.id) AS sent_messages_count",
	"(SELECT COUNT(*) FROM messages WHERE messages.receiver_id = u.id) AS received_messages_count",
}

// UserStatsWindow bounds the time-based user statistics.
type UserStatsWindow struct {
	DayStart   time.Time
	MonthStart time.Time
	TrendStart time.Time
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindWithCounts(ctx context.Context, id uuid.UUID) (*domain.UserWithCounts, error)
	List(ctx context.Context, filter query.UserFilter) ([]domain.UserWithCounts, int, error)
	Update(ctx context.Context, id uuid.UUID, update domain.UserUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, window UserStatsWindow) (*domain.UserStats, error)
}

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	insert := psql.Insert("users").
		Columns("id", "name", "email", "password_hash", "phone", "role", "is_active", "created_at", "updated_at").
		Values(user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt)

	if _, err := exec(ctx, r.db, insert); err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"u.email": email}, "failed to find user by email")
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"u.id": id}, "failed to find user by ID")
}

func (r *userRepository) findOne(ctx context.Context, where sq.Sqlizer, failure string) (*domain.User, error) {
	user := &domain.User{}
	err := getOne(ctx, r.db, user, psql.Select(userColumns...).From("users u").Where(where))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", failure, err)
	}
	return user, nil
}

func (r *userRepository) FindWithCounts(ctx context.Context, id uuid.UUID) (*domain.UserWithCounts, error) {
	user := &domain.UserWithCounts{}
	err := getOne(ctx, r.db, user, psql.Select(userColumns...).Columns(userCountColumns...).
		From("users u").Where(sq.Eq{"u.id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user with counts: %w", err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter query.UserFilter) (users []domain.UserWithCounts, total int, err error) {
	ctx, span := startSpan(ctx, "UserRepository.List")
	defer func() { endSpan(span, err) }()

	where := filter.Predicate()
	page := psql.Select(userColumns...).Columns(userCountColumns...).
		From("users u").
		Where(where).
		OrderBy(filter.Sort.Clause(), "u.id").
		Limit(uint64(filter.Limit)).
		Offset(filter.Offset())
	count := psql.Select("COUNT(*)").From("users u").Where(where)

	users, total, err = fetchPage[domain.UserWithCounts](ctx, r.db, page, count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, id uuid.UUID, update domain.UserUpdate) (*domain.User, error) {
	set := map[string]interface{}{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.Role != nil {
		set["role"] = string(*update.Role)
	}
	if update.IsActive != nil {
		set["is_active"] = *update.IsActive
	}

	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	user := &domain.User{}
	err := getOne(ctx, r.db, user, psql.Update("users u").
		SetMap(set).
		Where(sq.Eq{"u.id": id}).
		Suffix("RETURNING "+strings.Join(userColumns, ", ")))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.updateColumn(ctx, id, "password_hash", passwordHash)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumn(ctx, id, "last_login", at)
}

func (r *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	rowsAffected, err := exec(ctx, r.db, psql.Update("users").Set(column, value).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", column, err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := exec(ctx, r.db, psql.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type userCountsRow struct {
	Total     int `db:"total"`
	Active    int `db:"active"`
	Admins    int `db:"admins"`
	Today     int `db:"today"`
	ThisMonth int `db:"this_month"`
}

func (r *userRepository) Stats(ctx context.Context, window UserStatsWindow) (stats *domain.UserStats, err error) {
	ctx, span := startSpan(ctx, "UserRepository.Stats")
	defer func() { endSpan(span, err) }()

	var counts userCountsRow
	err = getOne(ctx, r.db, &counts, psql.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE is_active) AS active",
		"COUNT(*) FILTER (WHERE role = 'ADMIN') AS admins",
	).
		Column(sq.Expr("COUNT(*) FILTER (WHERE created_at >= ?) AS today", window.DayStart)).
		Column(sq.Expr("COUNT(*) FILTER (WHERE created_at >= ?) AS this_month", window.MonthStart)).
		From("users"))
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	trend := []domain.RegistrationDay{}
	err = selectAll(ctx, r.db, &trend, psql.
		Select("date_trunc('day', created_at) AS day", "COUNT(*) AS count").
		From("users").
		Where(sq.GtOrEq{"created_at": window.TrendStart}).
		GroupBy("1").
		OrderBy("1"))
	if err != nil {
		return nil, fmt.Errorf("failed to load registration trend: %w", err)
	}

	return &domain.UserStats{
		TotalUsers:        counts.Total,
		ActiveUsers:       counts.Active,
		InactiveUsers:     counts.Total - counts.Active,
		AdminUsers:        counts.Admins,
		RegularUsers:      counts.Total - counts.Admins,
		UsersToday:        counts.Today,
		UsersThisMonth:    counts.ThisMonth,
		RegistrationTrend: trend,
	}, nil
}
