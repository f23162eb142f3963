package router

import (
	"intern-portal/backend/internal/api"
)

// setupHealthRoutes registers the unversioned health paths
func (r *Router) setupHealthRoutes(hc *api.HealthController) {
	hc.RegisterRoutes(r.Engine)
	hc.RegisterRoutes(r.Engine.Group("/api"))
}
