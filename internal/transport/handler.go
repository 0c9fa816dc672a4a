package transport

import (
	"net"
	"net/http"

	"classifieds/internal/domain"
	"classifieds/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// pathID parses a UUID route parameter, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// principal returns the authenticated caller. Routes using it sit behind
// AuthMiddleware, so a missing principal is answered with 401.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "Access denied. No token provided.")
	}
	return p, ok
}

// clientIP strips the port from RemoteAddr; chi's RealIP middleware has
// already applied X-Forwarded-For.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
