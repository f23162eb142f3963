package api

import (
	"net/http"
	"runtime"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// HealthController reports component health and chat load
type HealthController struct {
	checker   *health.Checker
	registry  *chat.Registry
	version   string
	startTime time.Time
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.Checker, registry *chat.Registry, version string) *HealthController {
	return &HealthController{
		checker:   checker,
		registry:  registry,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status     string                       `json:"status"`
	Timestamp  time.Time                    `json:"timestamp"`
	Version    string                       `json:"version"`
	Uptime     string                       `json:"uptime"`
	Components map[string]*health.Component `json:"components"`
	Chat       ChatStats                    `json:"chat"`
	Memory     MemoryStats                  `json:"memory"`
}

// ChatStats counts live connections and rooms
type ChatStats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// MemoryStats is a small runtime memory summary
type MemoryStats struct {
	AllocMB  uint64 `json:"alloc_mb"`
	SysMB    uint64 `json:"sys_mb"`
	GCCycles uint32 `json:"gc_cycles"`
}

// RegisterRoutes registers health check related routes
func (hc *HealthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", hc.Health)
}

// Health answers 200 while every critical component is up, 503 otherwise
func (hc *HealthController) Health(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now(),
		Version:    hc.version,
		Uptime:     time.Since(hc.startTime).Round(time.Second).String(),
		Components: hc.checker.GetStatus(),
		Chat: ChatStats{
			Connections: hc.registry.Len(),
			Rooms:       hc.registry.RoomCount(),
		},
		Memory: MemoryStats{
			AllocMB:  mem.Alloc / 1024 / 1024,
			SysMB:    mem.Sys / 1024 / 1024,
			GCCycles: mem.NumGC,
		},
	}

	status := http.StatusOK
	if !hc.checker.IsSystemHealthy() {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
