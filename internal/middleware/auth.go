package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"classifieds/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	principalKey     contextKey = "principal"
	principalSlotKey contextKey = "principal_slot"
)

var (
	errMissingHeader = errors.New("Access denied. No token provided.")
	errHeaderFormat  = errors.New("Invalid authorization header format")
	errTokenExpired  = errors.New("Token has expired")
	errInvalidToken  = errors.New("Invalid token")
	errInvalidClaims = errors.New("Invalid token claims")
)

// AuthMiddleware validates JWT tokens and stores the caller in the context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r, jwtSecret)
			if err != nil {
				logger.Debug("Authentication failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", string(principal.Role)),
			)

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous or badly authenticated requests through unchanged.
func OptionalAuth(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authenticate(r, jwtSecret)
			if err != nil {
				logger.Debug("Ignoring invalid optional token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
		})
	}
}

func authenticate(r *http.Request, jwtSecret string) (*domain.Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errHeaderFormat
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, errInvalidToken
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errInvalidClaims
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidClaims
	}

	rawRole, ok := claims["role"].(string)
	if !ok || !domain.Role(rawRole).Valid() {
		return nil, errInvalidClaims
	}

	return &domain.Principal{UserID: userID, Role: domain.Role(rawRole)}, nil
}

// principalSlot lets middleware that wraps the router see a caller that is
// authenticated further down the chain, on a derived request.
type principalSlot struct {
	principal *domain.Principal
}

func withPrincipalSlot(ctx context.Context) (context.Context, *principalSlot) {
	slot := &principalSlot{}
	return context.WithValue(ctx, principalSlotKey, slot), slot
}

// WithPrincipal returns a copy of ctx carrying the authenticated caller. It
// also fills the slot left by an enclosing LoggingMiddleware.
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	if slot, ok := ctx.Value(principalSlotKey).(*principalSlot); ok {
		slot.principal = &principal
	}
	return context.WithValue(ctx, principalKey, principal)
}

// GetPrincipal extracts the authenticated caller from request context
func GetPrincipal(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(domain.Principal)
	return principal, ok
}
