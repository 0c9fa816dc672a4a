package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
	Message           string        // Body message of a 429 response
}

var (
	GeneralRateLimit = RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            15 * time.Minute,
		KeyPrefix:         "rl:general",
		Message:           "Too many requests from this IP, please try again later",
	}
	AuthRateLimit = RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            15 * time.Minute,
		KeyPrefix:         "rl:auth",
		Message:           "Too many authentication attempts, please try again later",
	}
	CreateAdRateLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Hour,
		KeyPrefix:         "rl:create_ad",
		Message:           "Too many ads created, please wait before creating more",
	}
	MessageRateLimit = RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            5 * time.Minute,
		KeyPrefix:         "rl:message",
		Message:           "Too many messages sent, please wait before sending more",
	}
)

// RateLimitMiddleware implements fixed-window rate limiting using Redis. A nil
// client disables limiting.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if redisClient == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientKey(r)
			key := fmt.Sprintf("%s:%s", config.KeyPrefix, clientID)
			ctx := r.Context()

			count, err := redisClient.Incr(ctx, key).Result()
			if err != nil {
				logger.Error("Failed to increment rate limit counter",
					zap.Error(err),
					zap.String("key", key),
				)
				// On Redis error, allow request to proceed
				next.ServeHTTP(w, r)
				return
			}

			// Set expiry on first request
			if count == 1 {
				if err := redisClient.Expire(ctx, key, config.Window).Err(); err != nil {
					logger.Warn("Failed to set rate limit window", zap.Error(err), zap.String("key", key))
				}
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))

			if count > int64(config.RequestsPerWindow) {
				ttl, err := redisClient.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = config.Window
				}

				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.String("limiter", config.KeyPrefix),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))

				message := config.Message
				if message == "" {
					message = "Too many requests, please try again later"
				}
				RespondWithError(w, http.StatusTooManyRequests, message)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(config.RequestsPerWindow-int(count)))

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller by user id when a principal is already in
// the context, else by IP. Only limiters mounted after AuthMiddleware (ad
// creation, messaging) see a principal; the general and auth limiters run
// before authentication and always key by IP.
func clientKey(r *http.Request) string {
	if principal, ok := GetPrincipal(r.Context()); ok {
		return "user:" + principal.UserID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
