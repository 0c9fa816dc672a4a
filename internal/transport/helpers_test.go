package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/middleware"
	"classifieds/internal/query"
	"classifieds/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// Fake services embed the interface so that only the methods a test
// exercises need an implementation.

type fakeAuthService struct {
	service.AuthService
	register func(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	login    func(ctx context.Context, email, password string) (*service.AuthResult, error)
	me       func(ctx context.Context, userID uuid.UUID) (*domain.UserWithCounts, error)
	logout   func(ctx context.Context, refreshToken string) error
}

func (f *fakeAuthService) Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error) {
	return f.register(ctx, input)
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.UserWithCounts, error) {
	return f.me(ctx, userID)
}

func (f *fakeAuthService) Logout(ctx context.Context, refreshToken string) error {
	return f.logout(ctx, refreshToken)
}

type fakeAdService struct {
	service.AdService
	list           func(ctx context.Context, filter query.AdFilter) (*query.Result[domain.AdDetails], error)
	getByID        func(ctx context.Context, id uuid.UUID, viewer service.AdViewer) (*domain.AdDetails, error)
	create         func(ctx context.Context, actor domain.Principal, input service.AdInput) (*domain.AdDetails, error)
	toggleFavorite func(ctx context.Context, actor domain.Principal, adID uuid.UUID) (*service.FavoriteToggle, error)
}

func (f *fakeAdService) List(ctx context.Context, filter query.AdFilter) (*query.Result[domain.AdDetails], error) {
	return f.list(ctx, filter)
}

func (f *fakeAdService) GetByID(ctx context.Context, id uuid.UUID, viewer service.AdViewer) (*domain.AdDetails, error) {
	return f.getByID(ctx, id, viewer)
}

func (f *fakeAdService) Create(ctx context.Context, actor domain.Principal, input service.AdInput) (*domain.AdDetails, error) {
	return f.create(ctx, actor, input)
}

func (f *fakeAdService) ToggleFavorite(ctx context.Context, actor domain.Principal, adID uuid.UUID) (*service.FavoriteToggle, error) {
	return f.toggleFavorite(ctx, actor, adID)
}

type fakeCategoryService struct {
	service.CategoryService
	tree   func(ctx context.Context, filter query.CategoryFilter) ([]domain.CategoryNode, error)
	update func(ctx context.Context, actor domain.Principal, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error)
}

func (f *fakeCategoryService) Tree(ctx context.Context, filter query.CategoryFilter) ([]domain.CategoryNode, error) {
	return f.tree(ctx, filter)
}

func (f *fakeCategoryService) Update(ctx context.Context, actor domain.Principal, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error) {
	return f.update(ctx, actor, id, update)
}

type fakeMessageService struct {
	service.MessageService
	thread   func(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID, page query.Page) (*query.Result[domain.MessageDetails], error)
	markRead func(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID) (int64, error)
	search   func(ctx context.Context, actor domain.Principal, search query.MessageSearch) ([]domain.MessageDetails, error)
}

func (f *fakeMessageService) Thread(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID, page query.Page) (*query.Result[domain.MessageDetails], error) {
	return f.thread(ctx, actor, otherUserID, page)
}

func (f *fakeMessageService) MarkRead(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID) (int64, error) {
	return f.markRead(ctx, actor, otherUserID)
}

func (f *fakeMessageService) Search(ctx context.Context, actor domain.Principal, search query.MessageSearch) ([]domain.MessageDetails, error) {
	return f.search(ctx, actor, search)
}

type fakeUserService struct {
	service.UserService
	profile      func(ctx context.Context, id uuid.UUID, page query.Page) (*service.PublicProfile, error)
	toggleStatus func(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.User, error)
}

func (f *fakeUserService) Profile(ctx context.Context, id uuid.UUID, page query.Page) (*service.PublicProfile, error) {
	return f.profile(ctx, id, page)
}

func (f *fakeUserService) ToggleStatus(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.User, error) {
	return f.toggleStatus(ctx, actor, id)
}

// newTestRouter mounts handlers behind the real auth guards. Rate limiters
// are left unset.
func newTestRouter(handlers ...RouteRegistrar) http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	Mount(r, Guards{
		Auth:         middleware.AuthMiddleware(testSecret, logger),
		OptionalAuth: middleware.OptionalAuth(testSecret, logger),
		Admin:        middleware.RequireAdmin(logger),
	}, handlers...)
	return r
}

func bearer(t *testing.T, p domain.Principal) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": p.UserID.String(),
		"role":    string(p.Role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func newPrincipal(role domain.Role) domain.Principal {
	return domain.Principal{UserID: uuid.New(), Role: role}
}

// do sends a request through h. body is JSON-encoded unless it is nil; auth
// is the Authorization header value, if any.
func do(t *testing.T, h http.Handler, method, target string, body interface{}, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// envelope is the decoded response body with data left generic.
type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Errors  interface{}            `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
