package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/pkg/logger"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Config tunes a WebSocket session
type Config struct {
	SendBufferSize int
	MaxFrameSize   int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PublishRate    float64
	PublishBurst   int
	AllowAnonymous bool
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = 512 * 1024
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PublishRate <= 0 {
		c.PublishRate = 10
	}
	if c.PublishBurst <= 0 {
		c.PublishBurst = 20
	}
	return c
}

// pingPeriod must stay below pongWait
func (c Config) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Client is one WebSocket connection. It implements chat.Conn: Send never
// blocks, a full buffer drops the frame.
type Client struct {
	id     string
	userID uint
	authed bool

	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	gateway *chat.Gateway
	limiter *rate.Limiter
	cfg     Config
	log     *logger.Logger
}

func newClient(id string, userID uint, authed bool, conn *websocket.Conn, gateway *chat.Gateway, cfg Config, log *logger.Logger) *Client {
	return &Client{
		id:      id,
		userID:  userID,
		authed:  authed,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBufferSize),
		done:    make(chan struct{}),
		gateway: gateway,
		limiter: rate.NewLimiter(rate.Limit(cfg.PublishRate), cfg.PublishBurst),
		cfg:     cfg,
		log:     log,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() (uint, bool) { return c.userID, c.authed }

// Send queues frame for the write pump
func (c *Client) Send(frame []byte) error {
	select {
	case <-c.done:
		return chat.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return chat.ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump handles inbound frames one at a time, in arrival order. When it
// returns the connection is disconnected from the gateway.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.gateway.Handle(ctx, c, chat.DisconnectEvent{})
		c.close()
		c.conn.Close()
		c.log.Info("WebSocket connection closed")
	}()

	c.conn.SetReadLimit(c.cfg.MaxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("WebSocket read failed", "error", err.Error())
			}
			return
		}

		c.handleFrame(ctx, data)
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	ev, ping, err := decodeFrame(data)
	if err != nil {
		c.log.Debug("Malformed frame", "error", err.Error())
		c.reply(chat.EncodeError(err))
		return
	}
	if ping {
		c.reply(chat.EncodePong())
		return
	}

	if _, ok := ev.(chat.PublishEvent); ok && !c.limiter.Allow() {
		c.log.Warn("Publish rate limit exceeded")
		c.reply(chat.EncodeError(chat.ErrRateLimited))
		return
	}

	if err := c.gateway.Handle(ctx, c, ev); err != nil && !errors.Is(err, chat.ErrInvalidMessage) {
		c.log.Debug("Event not applied", "error", err.Error())
	}
}

func (c *Client) reply(frame []byte) {
	if err := c.Send(frame); err != nil {
		c.log.Debug("Reply dropped", "error", err.Error())
	}
}

// writePump owns all writes to the socket. It exits when the client closes
// or ctx is cancelled, closing the socket so the read pump unblocks.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}

			// flush whatever queued up meanwhile, one frame per message
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.close()
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-ctx.Done():
			c.close()
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(c.cfg.WriteWait))
			return

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}
