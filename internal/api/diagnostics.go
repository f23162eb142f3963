package api

import (
	"net/http"

	"intern-portal/backend/internal/chat"

	"github.com/gin-gonic/gin"
)

// BreakerReporter exposes circuit breaker counters
type BreakerReporter interface {
	BreakerMetrics() map[string]interface{}
}

// DiagnosticsController shows chat internals to administrators
type DiagnosticsController struct {
	registry   *chat.Registry
	membership BreakerReporter
}

// NewDiagnosticsController reads live counts from registry and breaker state
// from membership on every request.
func NewDiagnosticsController(registry *chat.Registry, membership BreakerReporter) *DiagnosticsController {
	return &DiagnosticsController{registry: registry, membership: membership}
}

// RegisterRoutes expects a group already guarded by RBAC
func (dc *DiagnosticsController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/diagnostics", dc.Diagnostics)
}

// Diagnostics reports connection and room counts plus the membership
// circuit breaker counters as JSON.
func (dc *DiagnosticsController) Diagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"chat": ChatStats{
			Connections: dc.registry.Len(),
			Rooms:       dc.registry.RoomCount(),
		},
		"membership_breaker": dc.membership.BreakerMetrics(),
	})
}
