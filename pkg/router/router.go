package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"intern-portal/backend/internal/api"
	"intern-portal/backend/internal/ws"
	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/di"
	"intern-portal/backend/pkg/errors"
	"intern-portal/backend/pkg/jwt"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/middleware"
	"intern-portal/backend/pkg/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
	ctx       context.Context
}

// New creates the engine with the global middleware chain. ctx bounds the
// lifetime of background loops and of every WebSocket session.
func New(ctx context.Context, container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.Warn("Invalid trusted proxies, trusting none", "error", err.Error())
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: middleware.DefaultRateLimiterOptions().ExpiryDuration,
	})
	engine.Use(rateLimiter.Middleware(ctx))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
		ctx:       ctx,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	if r.Config.Server.OpenAPISpec != "" {
		r.AddOpenAPIValidation(r.Config.Server.OpenAPISpec)
	}

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	healthController := api.NewHealthController(r.Container.Health, r.Container.Registry, r.Config.Server.Env)
	messageController := api.NewMessageController(r.Container.Gateway)
	uploadController := api.NewUploadController(r.Container.UploadService)
	diagnosticsController := api.NewDiagnosticsController(r.Container.Registry, r.Container.MembershipService)

	r.setupHealthRoutes(healthController)
	r.setupMetricsRoute()
	r.setupUploadsStatic()

	v1 := r.Engine.Group("/api/v1")
	healthController.RegisterRoutes(v1)

	protected := v1.Group("/")
	protected.Use(jwtAuth)
	{
		messageController.RegisterRoutesV1(protected.Group("/", middleware.RequirePermission(jwt.PermReadMessages)))
		uploadLimiter := middleware.NewRateLimiter(r.Logger, middleware.RateLimiterOptions{
			Limit:          rate.Limit(r.Config.Uploads.RateLimit),
			Burst:          r.Config.Uploads.RateBurst,
			ExpiryDuration: time.Hour,
			KeyFunc:        middleware.UserOrIPKey,
		})
		uploadController.RegisterRoutesV1(protected.Group("/",
			middleware.RequirePermission(jwt.PermUploadFiles),
			uploadLimiter.Middleware(r.ctx),
		))

		admin := protected.Group("/admin", middleware.RequireRole(jwt.RoleAdmin))
		diagnosticsController.RegisterRoutes(admin.Group("/", middleware.RequirePermission(jwt.PermViewDiagnostics)))
	}

	// Legacy routes kept for the existing web client
	legacy := r.Engine.Group("/api")
	legacy.Use(jwtAuth)
	messageController.RegisterRoutes(legacy)

	wsHandler := ws.NewHandler(r.ctx, r.Container.Gateway, ws.Config{
		SendBufferSize: r.Config.Chat.SendBufferSize,
		MaxFrameSize:   r.Config.Chat.MaxFrameSize,
		WriteWait:      r.Config.Chat.WriteWait,
		PongWait:       r.Config.Chat.PongWait,
		PublishRate:    r.Config.Chat.PublishRate,
		PublishBurst:   r.Config.Chat.PublishBurst,
		AllowAnonymous: r.Config.Chat.AllowAnonymous,
		AllowedOrigins: r.Config.Security.AllowedOrigins,
	}, r.Logger)
	r.Engine.GET("/ws", middleware.OptionalJWTAuthMiddleware(r.Container.JWTService, r.Logger), wsHandler.ServeWs)
}

func (r *Router) setupMetricsRoute() {
	if !r.Config.Telemetry.EnableMetrics || r.Container.Telemetry == nil {
		return
	}
	r.Engine.GET(r.Config.Telemetry.MetricsPath, gin.WrapH(r.Container.Telemetry.MetricsHandler()))
}

// setupUploadsStatic serves locally stored attachments. S3 objects are
// fetched from the bucket directly.
func (r *Router) setupUploadsStatic() {
	local, ok := r.Container.Storage.(*storage.LocalStorage)
	if !ok {
		return
	}
	prefix := r.Config.Uploads.PublicURL
	if prefix == "" || strings.Contains(prefix, "://") {
		return
	}
	r.Engine.StaticFS(prefix, http.Dir(local.BasePath()))
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.ToLower(o)] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case origin == "":
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[strings.ToLower(origin)]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
