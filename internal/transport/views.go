package transport

import (
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"
	"classifieds/internal/service"

	"github.com/google/uuid"
)

// UserView is the account as seen by its owner or an admin. It never
// carries the password hash.
type UserView struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     *string     `json:"phone"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	LastLogin *time.Time  `json:"lastLogin"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newUserView(u *domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserCountsView struct {
	Ads              int `json:"ads"`
	SentMessages     int `json:"sentMessages"`
	ReceivedMessages int `json:"receivedMessages"`
}

type UserWithCountsView struct {
	UserView
	Count UserCountsView `json:"_count"`
}

func newUserWithCountsView(u *domain.UserWithCounts) UserWithCountsView {
	return UserWithCountsView{
		UserView: newUserView(&u.User),
		Count: UserCountsView{
			Ads:              u.Ads,
			SentMessages:     u.SentMessages,
			ReceivedMessages: u.ReceivedMessages,
		},
	}
}

type AdCountView struct {
	Ads int `json:"ads"`
}

// PublicUserView is what anyone may see of a user.
type PublicUserView struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Phone     *string     `json:"phone"`
	CreatedAt time.Time   `json:"createdAt"`
	Count     AdCountView `json:"_count"`
}

func newPublicUserView(u *domain.UserWithCounts) PublicUserView {
	return PublicUserView{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		Count:     AdCountView{Ads: u.ActiveAds},
	}
}

// AuthView is returned by register and login.
type AuthView struct {
	User         UserView `json:"user"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
}

func newAuthView(r *service.AuthResult) AuthView {
	return AuthView{
		User:         newUserView(r.User),
		Token:        r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

type ImageView struct {
	ID     uuid.UUID `json:"id"`
	URL    string    `json:"url"`
	IsMain bool      `json:"isMain"`
}

type AdOwnerView struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Phone     *string      `json:"phone"`
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
	Count     *AdCountView `json:"_count,omitempty"`
}

type CategoryRefView struct {
	ID     uuid.UUID        `json:"id"`
	Name   string           `json:"name"`
	Parent *CategoryRefView `json:"parent,omitempty"`
}

type AdCountsView struct {
	Favorites int `json:"favorites"`
	Views     int `json:"views"`
}

// AdView is the projection used by listings and, with owner and parent
// category details filled in, by the detail page.
type AdView struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	Location    string           `json:"location"`
	Condition   domain.Condition `json:"condition"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	User        AdOwnerView      `json:"user"`
	Category    CategoryRefView  `json:"category"`
	Images      []ImageView      `json:"images"`
	Count       AdCountsView     `json:"_count"`
}

func newAdView(ad *domain.AdDetails) AdView {
	images := make([]ImageView, 0, len(ad.Images))
	for _, img := range ad.Images {
		images = append(images, ImageView{ID: img.ID, URL: img.URL, IsMain: img.IsMain})
	}
	return AdView{
		ID:          ad.ID,
		Title:       ad.Title,
		Description: ad.Description,
		Price:       ad.Price,
		Location:    ad.Location,
		Condition:   ad.Condition,
		IsActive:    ad.IsActive,
		CreatedAt:   ad.CreatedAt,
		UpdatedAt:   ad.UpdatedAt,
		User:        AdOwnerView{ID: ad.UserID, Name: ad.OwnerName, Phone: ad.OwnerPhone},
		Category:    CategoryRefView{ID: ad.CategoryID, Name: ad.CategoryName},
		Images:      images,
		Count:       AdCountsView{Favorites: ad.FavoritesCount, Views: ad.ViewsCount},
	}
}

func newAdDetailView(ad *domain.AdDetails) AdView {
	view := newAdView(ad)
	view.User.CreatedAt = &ad.OwnerCreatedAt
	view.User.Count = &AdCountView{Ads: ad.OwnerActiveAds}
	if ad.CategoryParentID != nil && ad.CategoryParentName != nil {
		view.Category.Parent = &CategoryRefView{ID: *ad.CategoryParentID, Name: *ad.CategoryParentName}
	}
	return view
}

type CategoryCountView struct {
	Ads           int `json:"ads"`
	Subcategories int `json:"subcategories"`
}

type CategoryView struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Description   *string           `json:"description"`
	Icon          *string           `json:"icon"`
	ParentID      *uuid.UUID        `json:"parentId"`
	IsActive      bool              `json:"isActive"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Parent        *CategoryRefView  `json:"parent,omitempty"`
	Subcategories []CategoryView    `json:"subcategories,omitempty"`
	Count         CategoryCountView `json:"_count"`
}

func newCategoryView(c *domain.Category) CategoryView {
	return CategoryView{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		ParentID:    c.ParentID,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func newCategoryCountsView(c *domain.CategoryWithCounts) CategoryView {
	view := newCategoryView(&c.Category)
	view.Count = CategoryCountView{Ads: c.ActiveAds, Subcategories: c.Subcategories}
	return view
}

func newCategoryNodeView(n *domain.CategoryNode) CategoryView {
	view := newCategoryCountsView(&n.CategoryWithCounts)
	if n.Parent != nil {
		view.Parent = &CategoryRefView{ID: n.Parent.ID, Name: n.Parent.Name}
	}
	if n.Children != nil {
		view.Subcategories = make([]CategoryView, 0, len(n.Children))
		for i := range n.Children {
			view.Subcategories = append(view.Subcategories, newCategoryCountsView(&n.Children[i]))
		}
	}
	return view
}

type CategoryStatsView struct {
	TotalCategories       int            `json:"totalCategories"`
	TotalAds              int            `json:"totalAds"`
	ParentCategoriesCount int            `json:"parentCategoriesCount"`
	SubcategoriesCount    int            `json:"subcategoriesCount"`
	Categories            []CategoryView `json:"categories"`
}

func newCategoryStatsView(s *domain.CategoryStats) CategoryStatsView {
	categories := make([]CategoryView, 0, len(s.Categories))
	for i := range s.Categories {
		categories = append(categories, newCategoryCountsView(&s.Categories[i]))
	}
	return CategoryStatsView{
		TotalCategories:       s.TotalCategories,
		TotalAds:              s.TotalAds,
		ParentCategoriesCount: s.ParentCategoriesCount,
		SubcategoriesCount:    s.SubcategoriesCount,
		Categories:            categories,
	}
}

type UserRefView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type MessageAdView struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	IsActive     bool      `json:"isActive"`
	MainImageURL *string   `json:"mainImageUrl"`
}

func newMessageAdView(ad *domain.AdRef) *MessageAdView {
	if ad == nil {
		return nil
	}
	return &MessageAdView{
		ID:           ad.ID,
		Title:        ad.Title,
		Price:        ad.Price,
		IsActive:     ad.IsActive,
		MainImageURL: ad.MainImageURL,
	}
}

type MessageView struct {
	ID         uuid.UUID      `json:"id"`
	Content    string         `json:"content"`
	SenderID   uuid.UUID      `json:"senderId"`
	ReceiverID uuid.UUID      `json:"receiverId"`
	AdID       *uuid.UUID     `json:"adId"`
	IsRead     bool           `json:"isRead"`
	CreatedAt  time.Time      `json:"createdAt"`
	Sender     UserRefView    `json:"sender"`
	Receiver   UserRefView    `json:"receiver"`
	Ad         *MessageAdView `json:"ad"`
}

func newMessageView(m *domain.MessageDetails) MessageView {
	return MessageView{
		ID:         m.ID,
		Content:    m.Content,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		AdID:       m.AdID,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
		Sender:     UserRefView(m.Sender),
		Receiver:   UserRefView(m.Receiver),
		Ad:         newMessageAdView(m.Ad),
	}
}

func newMessageViews(messages []domain.MessageDetails) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, newMessageView(&messages[i]))
	}
	return views
}

type ConversationView struct {
	ID          string         `json:"id"`
	OtherUser   UserRefView    `json:"otherUser"`
	Ad          *MessageAdView `json:"ad"`
	LastMessage MessageView    `json:"lastMessage"`
	UnreadCount int            `json:"unreadCount"`
}

func newConversationView(c *domain.Conversation) ConversationView {
	return ConversationView{
		ID:          c.ID,
		OtherUser:   UserRefView(c.OtherUser),
		Ad:          newMessageAdView(c.Ad),
		LastMessage: newMessageView(&c.LastMessage),
		UnreadCount: c.UnreadCount,
	}
}

// pageView renders a paginated result under the given collection key.
func pageView[T, V any](key string, result *query.Result[T], project func(*T) V) map[string]interface{} {
	page := query.Map(result, project)
	return map[string]interface{}{
		key:          page.Items,
		"pagination": page.Pagination,
	}
}
