package transport

import (
	"net/http"

	"classifieds/internal/middleware"
	"classifieds/internal/query"
	"classifieds/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdHandler handles HTTP requests for ads and favorites
type AdHandler struct {
	adService service.AdService
	logger    *zap.Logger
}

// NewAdHandler creates a new AdHandler
func NewAdHandler(adService service.AdService, logger *zap.Logger) *AdHandler {
	return &AdHandler{
		adService: adService,
		logger:    logger,
	}
}

// RegisterRoutes registers all ad routes
func (h *AdHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/api/ads", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(g.OptionalAuth).Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(g.Auth)
			r.Get("/my-ads", h.ListMine)
			r.Get("/favorites", h.ListFavorites)
			r.With(g.CreateAdLimit).Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/favorite", h.ToggleFavorite)
		})
	})
}

// List returns active ads matching the query string filters
func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.adService.List(r.Context(), query.ParseAdFilter(r.URL.Query()))
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, pageView("ads", result, newAdView), "")
}

// ListMine returns the caller's own ads, active or not
func (h *AdHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := h.adService.ListMine(r.Context(), query.ParseOwnerAdFilter(r.URL.Query(), p.UserID))
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, pageView("ads", result, newAdView), "")
}

func (h *AdHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	page := query.ParsePage(r.URL.Query(), query.DefaultLimit)
	result, err := h.adService.ListFavorites(r.Context(), p.UserID, page)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, pageView("favorites", result, newAdView), "")
}

// Get returns one ad and records a view for non-owners
func (h *AdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	viewer := service.AdViewer{IPAddress: clientIP(r)}
	if p, ok := middleware.GetPrincipal(r.Context()); ok {
		viewer.Principal = &p
	}

	ad, err := h.adService.GetByID(r.Context(), id, viewer)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"ad": newAdDetailView(ad)}, "")
}

// Create publishes a new ad owned by the caller
func (h *AdHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req CreateAdRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	ad, err := h.adService.Create(r.Context(), p, req.toInput())
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusCreated, map[string]interface{}{"ad": newAdDetailView(ad)}, "Ad created successfully")
}

func (h *AdHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateAdRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	ad, err := h.adService.Update(r.Context(), p, id, req.toUpdate())
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"ad": newAdDetailView(ad)}, "Ad updated successfully")
}

func (h *AdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.adService.Delete(r.Context(), p, id); err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, nil, "Ad deleted successfully")
}

func (h *AdHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	toggle, err := h.adService.ToggleFavorite(r.Context(), p, id)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	message := "Removed from favorites"
	if toggle.IsFavorited {
		message = "Added to favorites"
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]bool{"isFavorited": toggle.IsFavorited}, message)
}
