package domain

import (
	"time"

	"github.com/google/uuid"
)

// Condition describes the state of the advertised item.
type Condition string

const (
	ConditionNew         Condition = "NEW"
	ConditionUsed        Condition = "USED"
	ConditionRefurbished Condition = "REFURBISHED"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionRefurbished:
		return true
	}
	return false
}

// Ad is a classified listing.
type Ad struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Location    string    `db:"location"`
	Condition   Condition `db:"condition"`
	CategoryID  uuid.UUID `db:"category_id"`
	UserID      uuid.UUID `db:"user_id"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// AdImage is one picture of an ad. At most one image per ad is expected to be
// flagged main; the store does not enforce it.
type AdImage struct {
	ID        uuid.UUID `db:"id"`
	AdID      uuid.UUID `db:"ad_id"`
	URL       string    `db:"url"`
	IsMain    bool      `db:"is_main"`
	CreatedAt time.Time `db:"created_at"`
}

// AdDetails is an ad joined with its owner, category and counters. It backs
// both the listing rows and the detail view.
type AdDetails struct {
	Ad
	OwnerName          string     `db:"owner_name"`
	OwnerPhone         *string    `db:"owner_phone"`
	OwnerCreatedAt     time.Time  `db:"owner_created_at"`
	OwnerActiveAds     int        `db:"owner_active_ads"`
	CategoryName       string     `db:"category_name"`
	CategoryParentID   *uuid.UUID `db:"category_parent_id"`
	CategoryParentName *string    `db:"category_parent_name"`
	FavoritesCount     int        `db:"favorites_count"`
	ViewsCount         int        `db:"views_count"`
	Images             []AdImage  `db:"-"`
}

// AdUpdate carries the optional fields of a partial ad update.
type AdUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	CategoryID  *uuid.UUID
	Location    *string
	Condition   *Condition
	IsActive    *bool
}

// Favorite is a user's bookmark of an ad, unique per (user, ad).
type Favorite struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	AdID      uuid.UUID `db:"ad_id"`
	CreatedAt time.Time `db:"created_at"`
}

// AdView records one detail view of an ad.
type AdView struct {
	ID        uuid.UUID  `db:"id"`
	AdID      uuid.UUID  `db:"ad_id"`
	UserID    *uuid.UUID `db:"user_id"`
	IPAddress string     `db:"ip_address"`
	CreatedAt time.Time  `db:"created_at"`
}
