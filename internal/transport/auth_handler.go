package transport

import (
	"net/http"

	"classifieds/internal/middleware"
	"classifieds/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthHandler serves registration, login and the caller's own account.
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/api/auth", func(r chi.Router) {
		// Public routes
		r.With(g.AuthLimit).Post("/register", h.Register)
		r.With(g.AuthLimit).Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(g.Auth)
			r.Get("/me", h.Me)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/change-password", h.ChangePassword)
			r.Post("/logout", h.Logout)
		})
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User registered", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithSuccess(w, http.StatusCreated, newAuthView(result), "User registered successfully")
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, newAuthView(result), "Login successful")
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	token, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, map[string]string{"token": token}, "")
}

// Me returns the caller's profile with activity counts
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Me(r.Context(), p.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"user": newUserWithCountsView(user)}, "")
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), p.UserID, service.ProfileInput{Name: req.Name, Phone: req.Phone})
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"user": newUserView(user)}, "Profile updated successfully")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, nil, "Password changed successfully")
}

// Logout revokes the supplied refresh token. The body is optional.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := middleware.DecodeAndValidate(r, &req); err != nil {
			h.logger.Debug("Logout without refresh token", zap.Error(err))
		}
	}

	if req.RefreshToken != "" {
		if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
			middleware.RespondWithAppError(w, r, h.logger, err)
			return
		}
	}

	middleware.RespondWithSuccess(w, http.StatusOK, nil, "Logout successful")
}
