package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"
	"classifieds/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing

type mockUserRepository struct {
	users     map[uuid.UUID]*domain.User
	counts    map[uuid.UUID]domain.UserCounts
	lastStats repository.UserStatsWindow
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[uuid.UUID]*domain.User),
		counts: make(map[uuid.UUID]domain.UserCounts),
	}
}

func (m *mockUserRepository) add(name, email string, role domain.Role) *domain.User {
	user := &domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	m.users[user.ID] = user
	return user
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindWithCounts(ctx context.Context, id uuid.UUID) (*domain.UserWithCounts, error) {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.UserWithCounts{User: *user, UserCounts: m.counts[id]}, nil
}

func (m *mockUserRepository) List(ctx context.Context, filter query.UserFilter) ([]domain.UserWithCounts, int, error) {
	items := make([]domain.UserWithCounts, 0, len(m.users))
	for id, u := range m.users {
		items = append(items, domain.UserWithCounts{User: *u, UserCounts: m.counts[id]})
	}
	return items, len(items), nil
}

func (m *mockUserRepository) Update(ctx context.Context, id uuid.UUID, update domain.UserUpdate) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Phone != nil {
		user.Phone = update.Phone
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	return user, nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, exists := m.users[id]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	user, exists := m.users[id]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.LastLogin = &at
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.users[id]; !exists {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) Stats(ctx context.Context, window repository.UserStatsWindow) (*domain.UserStats, error) {
	m.lastStats = window
	stats := &domain.UserStats{TotalUsers: len(m.users)}
	for _, u := range m.users {
		if u.IsActive {
			stats.ActiveUsers++
		}
		if u.IsAdmin() {
			stats.AdminUsers++
		}
	}
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	stats.RegularUsers = stats.TotalUsers - stats.AdminUsers
	return stats, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	adCounts   map[uuid.UUID]int
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[uuid.UUID]*domain.Category),
		adCounts:   make(map[uuid.UUID]int),
	}
}

func (m *mockCategoryRepository) add(name string, parentID *uuid.UUID) *domain.Category {
	category := &domain.Category{ID: uuid.New(), Name: name, ParentID: parentID, IsActive: true}
	m.categories[category.ID] = category
	return category
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (m *mockCategoryRepository) withCounts(c *domain.Category) domain.CategoryWithCounts {
	out := domain.CategoryWithCounts{Category: *c, ActiveAds: m.adCounts[c.ID]}
	for _, other := range m.categories {
		if other.IsActive && other.ParentID != nil && *other.ParentID == c.ID {
			out.Subcategories++
		}
	}
	return out
}

func (m *mockCategoryRepository) FindWithCounts(ctx context.Context, id uuid.UUID) (*domain.CategoryWithCounts, error) {
	category, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := m.withCounts(category)
	return &out, nil
}

func (m *mockCategoryRepository) ListActive(ctx context.Context) ([]domain.CategoryWithCounts, error) {
	items := make([]domain.CategoryWithCounts, 0)
	for _, c := range m.categories {
		if c.IsActive {
			items = append(items, m.withCounts(c))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *mockCategoryRepository) ListActiveChildren(ctx context.Context, parentID uuid.UUID) ([]domain.CategoryWithCounts, error) {
	all, _ := m.ListActive(ctx)
	items := make([]domain.CategoryWithCounts, 0)
	for _, c := range all {
		if c.ParentID != nil && *c.ParentID == parentID {
			items = append(items, c)
		}
	}
	return items, nil
}

func (m *mockCategoryRepository) NameExists(ctx context.Context, name string, parentID *uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	for _, c := range m.categories {
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		if strings.EqualFold(c.Name, name) && sameParent(c.ParentID, parentID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	if update.Name != nil {
		category.Name = *update.Name
	}
	if update.Description != nil {
		category.Description = update.Description
	}
	if update.Icon != nil {
		category.Icon = update.Icon
	}
	if update.ParentSet {
		category.ParentID = update.ParentID
	}
	if update.IsActive != nil {
		category.IsActive = *update.IsActive
	}
	return category, nil
}

func (m *mockCategoryRepository) CountReferences(ctx context.Context, id uuid.UUID) (*repository.CategoryReferences, error) {
	if _, exists := m.categories[id]; !exists {
		return nil, repository.ErrCategoryNotFound
	}
	refs := &repository.CategoryReferences{Ads: m.adCounts[id]}
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			refs.Children++
		}
	}
	return refs, nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.categories[id]; !exists {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

type mockAdRepository struct {
	mu         sync.Mutex
	ads        map[uuid.UUID]*domain.Ad
	images     map[uuid.UUID][]domain.AdImage
	views      []domain.AdView
	categories *mockCategoryRepository
}

func newMockAdRepository(categories *mockCategoryRepository) *mockAdRepository {
	return &mockAdRepository{
		ads:        make(map[uuid.UUID]*domain.Ad),
		images:     make(map[uuid.UUID][]domain.AdImage),
		categories: categories,
	}
}

func (m *mockAdRepository) viewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

func (m *mockAdRepository) Create(ctx context.Context, ad *domain.Ad, images []domain.AdImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.categories.categories[ad.CategoryID]; !exists {
		return repository.ErrInvalidCategory
	}
	m.ads[ad.ID] = ad
	m.images[ad.ID] = images
	m.categories.adCounts[ad.CategoryID]++
	return nil
}

func (m *mockAdRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, exists := m.ads[id]
	if !exists {
		return nil, repository.ErrAdNotFound
	}
	return ad, nil
}

func (m *mockAdRepository) details(ad *domain.Ad) domain.AdDetails {
	views := 0
	for _, v := range m.views {
		if v.AdID == ad.ID {
			views++
		}
	}
	return domain.AdDetails{Ad: *ad, Images: m.images[ad.ID], ViewsCount: views}
}

func (m *mockAdRepository) FindDetails(ctx context.Context, id uuid.UUID) (*domain.AdDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, exists := m.ads[id]
	if !exists {
		return nil, repository.ErrAdNotFound
	}
	out := m.details(ad)
	return &out, nil
}

func (m *mockAdRepository) List(ctx context.Context, filter query.AdFilter) ([]domain.AdDetails, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.AdDetails, 0)
	search := strings.ToLower(filter.Search)
	for _, ad := range m.ads {
		if !ad.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(ad.Title+" "+ad.Description), search) {
			continue
		}
		items = append(items, m.details(ad))
	}
	return items, len(items), nil
}

func (m *mockAdRepository) ListByOwner(ctx context.Context, filter query.OwnerAdFilter) ([]domain.AdDetails, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.AdDetails, 0)
	for _, ad := range m.ads {
		if ad.UserID != filter.UserID {
			continue
		}
		if filter.IsActive != nil && ad.IsActive != *filter.IsActive {
			continue
		}
		items = append(items, m.details(ad))
	}
	return items, len(items), nil
}

func (m *mockAdRepository) ListFavorites(ctx context.Context, userID uuid.UUID, page query.Page) ([]domain.AdDetails, int, error) {
	return []domain.AdDetails{}, 0, nil
}

func (m *mockAdRepository) Update(ctx context.Context, id uuid.UUID, update domain.AdUpdate) (*domain.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, exists := m.ads[id]
	if !exists {
		return nil, repository.ErrAdNotFound
	}
	if update.Title != nil {
		ad.Title = *update.Title
	}
	if update.Description != nil {
		ad.Description = *update.Description
	}
	if update.Price != nil {
		ad.Price = *update.Price
	}
	if update.CategoryID != nil {
		ad.CategoryID = *update.CategoryID
	}
	if update.Location != nil {
		ad.Location = *update.Location
	}
	if update.Condition != nil {
		ad.Condition = *update.Condition
	}
	if update.IsActive != nil {
		ad.IsActive = *update.IsActive
	}
	return ad, nil
}

func (m *mockAdRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ads[id]; !exists {
		return repository.ErrAdNotFound
	}
	delete(m.ads, id)
	delete(m.images, id)
	return nil
}

func (m *mockAdRepository) RecordView(ctx context.Context, view *domain.AdView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ads[view.AdID]; !exists {
		return repository.ErrAdNotFound
	}
	m.views = append(m.views, *view)
	return nil
}

type favoriteKey struct {
	userID uuid.UUID
	adID   uuid.UUID
}

type mockFavoriteRepository struct {
	favorites map[favoriteKey]*domain.Favorite
	// existsOverride simulates a concurrent toggle that inserted the row
	// after the existence check.
	existsOverride *bool
}

func newMockFavoriteRepository() *mockFavoriteRepository {
	return &mockFavoriteRepository{favorites: make(map[favoriteKey]*domain.Favorite)}
}

func (m *mockFavoriteRepository) Exists(ctx context.Context, userID, adID uuid.UUID) (bool, error) {
	if m.existsOverride != nil {
		return *m.existsOverride, nil
	}
	_, exists := m.favorites[favoriteKey{userID, adID}]
	return exists, nil
}

func (m *mockFavoriteRepository) Add(ctx context.Context, favorite *domain.Favorite) error {
	key := favoriteKey{favorite.UserID, favorite.AdID}
	if _, exists := m.favorites[key]; exists {
		return repository.ErrFavoriteExists
	}
	m.favorites[key] = favorite
	return nil
}

func (m *mockFavoriteRepository) Remove(ctx context.Context, userID, adID uuid.UUID) error {
	key := favoriteKey{userID, adID}
	if _, exists := m.favorites[key]; !exists {
		return repository.ErrFavoriteNotFound
	}
	delete(m.favorites, key)
	return nil
}

type mockMessageRepository struct {
	mu       sync.Mutex
	messages []*domain.Message
	users    *mockUserRepository
}

func newMockMessageRepository(users *mockUserRepository) *mockMessageRepository {
	return &mockMessageRepository{users: users}
}

func (m *mockMessageRepository) details(msg *domain.Message) domain.MessageDetails {
	out := domain.MessageDetails{Message: *msg}
	if u, ok := m.users.users[msg.SenderID]; ok {
		out.Sender = domain.UserRef{ID: u.ID, Name: u.Name}
	}
	if u, ok := m.users.users[msg.ReceiverID]; ok {
		out.Receiver = domain.UserRef{ID: u.ID, Name: u.Name}
	}
	if msg.AdID != nil {
		out.Ad = &domain.AdRef{ID: *msg.AdID}
	}
	return out
}

// newestFirst returns the matching messages ordered by creation time, newest
// first.
func (m *mockMessageRepository) newestFirst(match func(*domain.Message) bool) []domain.MessageDetails {
	items := make([]domain.MessageDetails, 0)
	for _, msg := range m.messages {
		if match(msg) {
			items = append(items, m.details(msg))
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items
}

func (m *mockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (m *mockMessageRepository) FindDetails(ctx context.Context, id uuid.UUID) (*domain.MessageDetails, error) {
	msg, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := m.details(msg)
	return &out, nil
}

func (m *mockMessageRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.MessageDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(msg *domain.Message) bool {
		return msg.SenderID == userID || msg.ReceiverID == userID
	}), nil
}

func (m *mockMessageRepository) ListThread(ctx context.Context, userID, otherUserID uuid.UUID, page query.Page) ([]domain.MessageDetails, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.newestFirst(func(msg *domain.Message) bool {
		return (msg.SenderID == userID && msg.ReceiverID == otherUserID) ||
			(msg.SenderID == otherUserID && msg.ReceiverID == userID)
	})
	total := len(items)
	start := min(int(page.Offset()), total)
	end := min(start+page.Limit, total)
	return items[start:end], total, nil
}

func (m *mockMessageRepository) Search(ctx context.Context, userID uuid.UUID, search query.MessageSearch, limit int) ([]domain.MessageDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(search.Query)
	items := m.newestFirst(func(msg *domain.Message) bool {
		if msg.SenderID != userID && msg.ReceiverID != userID {
			return false
		}
		if search.OtherUserID != nil && msg.SenderID != *search.OtherUserID && msg.ReceiverID != *search.OtherUserID {
			return false
		}
		return strings.Contains(strings.ToLower(msg.Content), needle)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *mockMessageRepository) CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockMessageRepository) CountUnreadFrom(ctx context.Context, receiverID, senderID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID && msg.SenderID == senderID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockMessageRepository) MarkRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID && msg.SenderID == senderID && !msg.IsRead {
			msg.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (m *mockMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return repository.ErrMessageNotFound
}
