package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Guards are the middlewares handlers attach to their routes.
type Guards struct {
	Auth         func(http.Handler) http.Handler
	OptionalAuth func(http.Handler) http.Handler
	Admin        func(http.Handler) http.Handler

	AuthLimit     func(http.Handler) http.Handler
	CreateAdLimit func(http.Handler) http.Handler
	MessageLimit  func(http.Handler) http.Handler
}

// RouteRegistrar is implemented by every handler in this package.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router, g Guards)
}

// passThrough stands in for a guard that was left unset.
func passThrough(next http.Handler) http.Handler { return next }

// withDefaults fills unset guards so handlers can chain them unconditionally.
func (g Guards) withDefaults() Guards {
	for _, mw := range []*func(http.Handler) http.Handler{
		&g.Auth, &g.OptionalAuth, &g.Admin, &g.AuthLimit, &g.CreateAdLimit, &g.MessageLimit,
	} {
		if *mw == nil {
			*mw = passThrough
		}
	}
	return g
}

// Mount registers every handler's routes on r.
func Mount(r chi.Router, g Guards, handlers ...RouteRegistrar) {
	g = g.withDefaults()
	for _, h := range handlers {
		h.RegisterRoutes(r, g)
	}
}
