package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"classifieds/internal/config"
	"classifieds/internal/database"
	custommiddleware "classifieds/internal/middleware"
	"classifieds/internal/repository"
	"classifieds/internal/service"
	"classifieds/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const apiVersion = "1.0.0"

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        *database.Service
	redis     *redis.Client
	startedAt time.Time
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     newRedisClient(cfg, logger),
		startedAt: time.Now(),
	}

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(s.routes(), "classifieds-api"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	cfg := s.config
	logger := s.logger

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.FrontendURL, cfg.Server.IsDevelopment()))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "Route "+r.URL.Path+" not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
	})

	router.Get("/health", s.health)

	// Initialize repositories
	sqlDB := s.db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	adRepo := repository.NewAdRepository(sqlDB)
	favoriteRepo := repository.NewFavoriteRepository(sqlDB)
	messageRepo := repository.NewMessageRepository(sqlDB)

	// Initialize services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, service.TokenConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	}, logger)
	userService := service.NewUserService(userRepo, adRepo, refreshTokenRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo, logger)
	adService := service.NewAdService(adRepo, categoryRepo, favoriteRepo, logger)
	messageService := service.NewMessageService(messageRepo, userRepo, adRepo, logger)

	guards := transport.Guards{
		Auth:          custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
		OptionalAuth:  custommiddleware.OptionalAuth(cfg.JWT.Secret, logger),
		Admin:         custommiddleware.RequireAdmin(logger),
		AuthLimit:     custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.AuthRateLimit, logger),
		CreateAdLimit: custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.CreateAdRateLimit, logger),
		MessageLimit:  custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.MessageRateLimit, logger),
	}

	// Everything under /api shares the general limiter
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.GeneralRateLimit, logger))
		r.Get("/api", s.index)
		r.Get("/api/health", s.health)

		transport.Mount(r, guards,
			transport.NewAuthHandler(authService, logger),
			transport.NewAdHandler(adService, logger),
			transport.NewCategoryHandler(categoryService, logger),
			transport.NewMessageHandler(messageService, logger),
			transport.NewUserHandler(userService, logger),
		)
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	dbHealth := s.db.Health(r.Context())

	status := http.StatusOK
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
		"success":   status == http.StatusOK,
		"message":   "Classifieds API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
		"database":  dbHealth,
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Welcome to the Classifieds API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"authentication": "/api/auth",
			"ads":            "/api/ads",
			"categories":     "/api/categories",
			"messages":       "/api/messages",
			"users":          "/api/users",
			"health":         "/api/health",
		},
	})
}

// newRedisClient returns the rate limiter store, or nil when rate limiting is
// disabled. An unreachable Redis is only logged: the limiters fail open.
func newRedisClient(cfg *config.Config, logger *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled {
		logger.Info("Rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, rate limits will not be enforced until it recovers",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Error(err),
		)
	}

	return client
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
