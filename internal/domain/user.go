package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a marketplace account. PasswordHash never leaves the service layer.
type User struct {
	ID           uuid.UUID  `db:"id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Phone        *string    `db:"phone"`
	Role         Role       `db:"role"`
	IsActive     bool       `db:"is_active"`
	LastLogin    *time.Time `db:"last_login"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserCounts aggregates the rows that reference a user.
type UserCounts struct {
	Ads              int `db:"ads_count"`
	ActiveAds        int `db:"active_ads_count"`
	SentMessages     int `db:"sent_messages_count"`
	ReceivedMessages int `db:"received_messages_count"`
}

// UserWithCounts is a user row joined with its relation counts.
type UserWithCounts struct {
	User
	UserCounts
}

// UserUpdate carries the optional fields of a partial user update.
type UserUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Role     *Role
	IsActive *bool
}

// RegistrationDay is the number of users created on one calendar day.
type RegistrationDay struct {
	Day   time.Time `db:"day" json:"day"`
	Count int       `db:"count" json:"count"`
}

// UserStats summarises the user base for the admin dashboard.
type UserStats struct {
	TotalUsers        int               `json:"totalUsers"`
	ActiveUsers       int               `json:"activeUsers"`
	InactiveUsers     int               `json:"inactiveUsers"`
	AdminUsers        int               `json:"adminUsers"`
	RegularUsers      int               `json:"regularUsers"`
	UsersToday        int               `json:"usersToday"`
	UsersThisMonth    int               `json:"usersThisMonth"`
	RegistrationTrend []RegistrationDay `json:"registrationTrend"`
}

// RefreshToken is a long-lived token exchanged for new access tokens.
type RefreshToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	Revoked   bool      `db:"revoked"`
}
