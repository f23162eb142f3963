package ws

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/pkg/errors"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests into chat connections
type Handler struct {
	ctx      context.Context
	gateway  *chat.Gateway
	cfg      Config
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the handler. Every connection it accepts is closed
// once ctx is cancelled.
func NewHandler(ctx context.Context, gateway *chat.Gateway, cfg Config, log *logger.Logger) *Handler {
	h := &Handler{
		ctx:     ctx,
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	return h
}

// checkOrigin allows same-origin requests, requests without an Origin header
// and the configured origins. "*" allows everything.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// ServeWs upgrades the request. Authentication runs before this handler
// (see middleware.OptionalJWTAuthMiddleware); without claims the connection
// is an anonymous observer, if those are allowed.
func (h *Handler) ServeWs(c *gin.Context) {
	var (
		userID uint
		authed bool
	)
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		userID, authed = claims.UserID, true
	} else if !h.cfg.AllowAnonymous {
		c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "A token is required to open a chat connection"))
		c.Abort()
		return
	}

	reqLog := logger.FromContext(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		reqLog.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	connID := uuid.NewString()
	connLog := reqLog.WithConnection(connID)
	if authed {
		connLog = connLog.WithUserID(strconv.FormatUint(uint64(userID), 10))
	}

	client := newClient(connID, userID, authed, conn, h.gateway, h.cfg, connLog)

	connCtx, cancel := context.WithCancel(h.ctx)
	h.gateway.Connect(connCtx, client)
	connLog.Info("WebSocket connection established", "authenticated", authed)

	go func() {
		defer cancel()
		client.writePump(connCtx)
	}()
	go client.readPump(connCtx)
}
