package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classifieds/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID uuid.UUID, role domain.Role) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

// principalEcho writes 200 and records the principal seen by the handler.
func principalEcho(seen *domain.Principal, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *found = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(method, "/api/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(role string, hoursAgo int) bool {
			claims := validClaims(uuid.New(), domain.Role(role))
			claims["exp"] = time.Now().Add(-time.Duration(hoursAgo) * time.Hour).Unix()
			token := signToken(t, testSecret, claims)

			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/auth/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.OneConstOf("USER", "ADMIN"),
		gen.IntRange(1, 48),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensCarryPrincipal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a valid token exposes its user id and role to the handler", prop.ForAll(
		func(role string) bool {
			userID := uuid.New()
			token := signToken(t, testSecret, validClaims(userID, domain.Role(role)))

			var seen domain.Principal
			var found bool
			handler := AuthMiddleware(testSecret, zap.NewNop())(principalEcho(&seen, &found))

			req := httptest.NewRequest("GET", "/api/auth/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && found &&
				seen.UserID == userID && seen.Role == domain.Role(role)
		},
		gen.OneConstOf("USER", "ADMIN"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	userID := uuid.New()
	noRole := validClaims(userID, domain.RoleUser)
	delete(noRole, "role")
	badID := validClaims(userID, domain.RoleUser)
	badID["user_id"] = "42"

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing bearer prefix", header: signToken(t, testSecret, validClaims(userID, domain.RoleUser))},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not.a.jwt"},
		{name: "foreign signature", header: "Bearer " + signToken(t, "other-secret", validClaims(userID, domain.RoleUser))},
		{name: "unknown role", header: "Bearer " + signToken(t, testSecret, validClaims(userID, "OWNER"))},
		{name: "missing role", header: "Bearer " + signToken(t, testSecret, noRole)},
		{name: "non uuid user id", header: "Bearer " + signToken(t, testSecret, badID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/auth/me", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeError(t, w)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		header    string
		wantFound bool
	}{
		{name: "anonymous", header: "", wantFound: false},
		{name: "invalid token is ignored", header: "Bearer nope", wantFound: false},
		{name: "valid token", header: "Bearer " + signToken(t, testSecret, validClaims(userID, domain.RoleUser)), wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen domain.Principal
			var found bool
			handler := OptionalAuth(testSecret, zap.NewNop())(principalEcho(&seen, &found))

			req := httptest.NewRequest("GET", "/api/ads/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, userID, seen.UserID)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		principal  *domain.Principal
		wantStatus int
	}{
		{name: "no principal", wantStatus: http.StatusUnauthorized},
		{name: "regular user", principal: &domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}, wantStatus: http.StatusForbidden},
		{name: "admin", principal: &domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/users", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
