package transport

import (
	"net/http"

	"classifieds/internal/domain"
	"classifieds/internal/middleware"
	"classifieds/internal/query"
	"classifieds/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryHandler handles HTTP requests for the category tree
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(g.Auth, g.Admin)
			r.Get("/stats", h.Stats)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List returns the active root categories, optionally with their children
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.categoryService.Tree(r.Context(), query.ParseCategoryFilter(r.URL.Query()))
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	categories := make([]CategoryView, 0, len(nodes))
	for i := range nodes {
		categories = append(categories, newCategoryNodeView(&nodes[i]))
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"categories": categories}, "")
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	node, err := h.categoryService.GetByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]interface{}{"category": newCategoryNodeView(node)}, "")
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req CreateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.categoryService.Create(r.Context(), p, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		ParentID:    req.ParentID,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	middleware.RespondWithSuccess(w, http.StatusCreated, categoryData(category), "Category created successfully")
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.categoryService.Update(r.Context(), p, id, req.toUpdate())
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, categoryData(category), "Category updated successfully")
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(r.Context(), p, id); err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, nil, "Category deleted successfully")
}

func (h *CategoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	stats, err := h.categoryService.Stats(r.Context(), p)
	if err != nil {
		middleware.RespondWithAppError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, newCategoryStatsView(stats), "")
}

func categoryData(c *domain.Category) map[string]interface{} {
	return map[string]interface{}{"category": newCategoryView(c)}
}
