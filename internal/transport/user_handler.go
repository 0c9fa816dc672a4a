package transport

import (
	"net/http"

	"classifieds/internal/middleware"
	"classifieds/internal/query"
	"classifieds/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for user administration and public
// profiles
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/api/users", func(r chi.Router) {
		// Public routes
		r.Get("/{id}", h.Get)
		r.Get("/{id}/profile", h.Profile)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(g.Auth, g.Admin)
			r.Get("/", h.List)
			r.Get("/stats", h.Stats)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Put("/{id}/toggle-status", h.ToggleStatus)
			r.Put("/{id}/reset-password", h.ResetPassword)
		})
	})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := h.userService.List(r.Context(), p, query.ParseUserFilter(r.URL.Query()))
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, pageView("users", result, newUserWithCountsView), "")
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	stats, err := h.userService.Stats(r.Context(), p)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, stats, "")
}

// Get returns the public projection of a user
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetPublic(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"user": newPublicUserView(user)}, "")
}

// Profile returns the public projection of a user with a page of their
// active ads
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	page := query.ParsePage(r.URL.Query(), service.ProfileAdsLimit)
	profile, err := h.userService.Profile(r.Context(), id, page)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	data := pageView("ads", profile.Ads, newAdView)
	data["user"] = newPublicUserView(profile.User)
	middleware.RespondWithSuccess(w, http.StatusOK, data, "")
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.Update(r.Context(), p, id, req.toInput())
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"user": newUserView(user)}, "User updated successfully")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), p, id); err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User deleted", zap.String("user_id", id.String()), zap.String("admin_id", p.UserID.String()))
	middleware.RespondWithSuccess(w, http.StatusOK, nil, "User deleted successfully")
}

func (h *UserHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.ToggleStatus(r.Context(), p, id)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	message := "User deactivated successfully"
	if user.IsActive {
		message = "User activated successfully"
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"user": newUserView(user)}, message)
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.userService.ResetPassword(r.Context(), p, id, req.NewPassword); err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, nil, "Password reset successfully")
}
