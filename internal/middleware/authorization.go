package middleware

import (
	"net/http"
	"slices"

	"classifieds/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]domain.Role{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				logger.Warn("Principal not found in context")
				RespondWithError(w, http.StatusUnauthorized, errMissingHeader.Error())
				return
			}

			if !slices.Contains(allowedRoles, principal.Role) {
				logger.Warn("User role not authorized",
					zap.String("user_id", principal.UserID.String()),
					zap.String("role", string(principal.Role)),
				)
				RespondWithError(w, http.StatusForbidden, "Access denied. Insufficient permissions.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
