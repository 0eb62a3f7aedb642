package http

import (
	"github.com/fasthttp/router"
)

// Router registers feed ops routes
type Router struct {
	handler *HealthHandler
}

// NewRouter creates a new feed router
func NewRouter(handler *HealthHandler) *Router {
	return &Router{handler: handler}
}

// RegisterRoutes registers feed routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/health", r.handler.Handle)
}
