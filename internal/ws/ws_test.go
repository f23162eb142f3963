package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/pkg/errors"
	"intern-portal/backend/pkg/jwt"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memberSet map[uint]bool

func (m memberSet) IsMember(_ context.Context, userID, _ uint) (bool, error) {
	return m[userID], nil
}

type memoryStore struct {
	mu   sync.Mutex
	msgs []chat.ChatMessage
}

func (s *memoryStore) Append(_ context.Context, d chat.Draft) (*chat.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := chat.ChatMessage{
		ID:         uint(len(s.msgs) + 1),
		ProjectID:  d.ProjectID,
		SenderID:   d.SenderID,
		Text:       d.Text,
		Attachment: d.Attachment,
		CreatedAt:  time.Now().UTC(),
	}
	s.msgs = append(s.msgs, m)
	return &m, nil
}

func (s *memoryStore) ListByProject(_ context.Context, projectID uint) ([]chat.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.ChatMessage
	for _, m := range s.msgs {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

type staticNames map[uint]string

func (n staticNames) DisplayName(_ context.Context, userID uint) (string, error) {
	return n[userID], nil
}

type testServer struct {
	srv     *httptest.Server
	gateway *chat.Gateway
	tokens  *jwt.Service
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logger.Discard()
	gateway := chat.NewGateway(chat.Deps{
		Oracle:    memberSet{1: true, 2: true},
		Store:     &memoryStore{},
		Directory: staticNames{1: "Ada", 2: "Grace"},
		Logger:    log,
	}, chat.Options{})

	tokens := jwt.NewService("test-secret", time.Hour, "test")
	handler := NewHandler(ctx, gateway, cfg, log)

	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.GET("/ws", middleware.OptionalJWTAuthMiddleware(tokens, log), handler.ServeWs)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, gateway: gateway, tokens: tokens}
}

func (s *testServer) dial(t *testing.T, userID uint) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	if userID != 0 {
		token, err := s.tokens.GenerateToken(userID, "u@example.com", jwt.RoleIntern)
		require.NoError(t, err)
		u += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func next(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestServeWs_JoinAndPublish(t *testing.T) {
	s := newTestServer(t, Config{})
	ada := s.dial(t, 1)
	grace := s.dial(t, 2)

	send(t, ada, `{"type":"join","projectId":5}`)
	assert.Equal(t, "joined", next(t, ada)["type"])
	send(t, grace, `{"type":"joinProject","projectId":"5"}`)
	assert.Equal(t, "joined", next(t, grace)["type"])

	send(t, ada, `{"type":"sendMessage","projectId":"5","senderId":"1","message":"hello team"}`)

	for _, conn := range []*websocket.Conn{ada, grace} {
		frame := next(t, conn)
		require.Equal(t, "delivered", frame["type"])
		msg := frame["message"].(map[string]any)
		assert.Equal(t, "hello team", msg["text"])
		assert.Equal(t, "Ada", msg["senderName"])
		assert.EqualValues(t, 5, msg["projectId"])
	}
}

func TestServeWs_PingAndMalformed(t *testing.T) {
	s := newTestServer(t, Config{})
	conn := s.dial(t, 1)

	send(t, conn, `{"type":"ping"}`)
	assert.Equal(t, "pong", next(t, conn)["type"])

	send(t, conn, `not json`)
	frame := next(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "MALFORMED_FRAME", frame["code"])

	send(t, conn, `{"type":"publish","projectId":5,"text":"   "}`)
	assert.Equal(t, "INVALID_MESSAGE", next(t, conn)["code"])
}

func TestServeWs_PublishRateLimit(t *testing.T) {
	s := newTestServer(t, Config{PublishRate: 0.001, PublishBurst: 1})
	conn := s.dial(t, 1)

	send(t, conn, `{"type":"join","projectId":5}`)
	next(t, conn)

	send(t, conn, `{"type":"publish","projectId":5,"text":"one"}`)
	assert.Equal(t, "delivered", next(t, conn)["type"])

	send(t, conn, `{"type":"publish","projectId":5,"text":"two"}`)
	assert.Equal(t, "RATE_LIMITED", next(t, conn)["code"])
}

func TestServeWs_AnonymousPolicy(t *testing.T) {
	strict := newTestServer(t, Config{})
	u := "ws" + strings.TrimPrefix(strict.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(u+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	open := newTestServer(t, Config{AllowAnonymous: true})
	observer := open.dial(t, 0)
	send(t, observer, `{"type":"join","projectId":5}`)
	assert.Equal(t, "joined", next(t, observer)["type"])

	send(t, observer, `{"type":"publish","projectId":5,"text":"hi"}`)
	send(t, observer, `{"type":"ping"}`)
	assert.Equal(t, "pong", next(t, observer)["type"], "anonymous publish is dropped silently")
}

func TestServeWs_CloseUnregisters(t *testing.T) {
	s := newTestServer(t, Config{})
	conn := s.dial(t, 1)
	send(t, conn, `{"type":"join","projectId":5}`)
	next(t, conn)
	require.Equal(t, 1, s.gateway.Registry().Len())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return s.gateway.Registry().Len() == 0 && s.gateway.Registry().RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDecodeFrame(t *testing.T) {
	ev, ping, err := decodeFrame([]byte(`{"type":"publish","projectId":3,"text":"hi","attachment":{"url":"/u/a.png","originalName":"a.png"}}`))
	require.NoError(t, err)
	assert.False(t, ping)
	pub := ev.(chat.PublishEvent)
	assert.Equal(t, uint(3), pub.ProjectID)
	require.NotNil(t, pub.Attachment)
	assert.Equal(t, chat.KindFile, pub.Attachment.Kind, "missing kind defaults to file")

	ev, _, err = decodeFrame([]byte(`{"type":"sendMessage","projectId":3,"fileUrl":"/u/v.mp4","fileType":"video","originalName":"v.mp4"}`))
	require.NoError(t, err)
	pub = ev.(chat.PublishEvent)
	require.NotNil(t, pub.Attachment)
	assert.Equal(t, chat.KindVideo, pub.Attachment.Kind)

	ev, _, err = decodeFrame([]byte(`{"type":"leaveProject","projectId":"9"}`))
	require.NoError(t, err)
	assert.Equal(t, chat.LeaveEvent{ProjectID: 9}, ev)

	_, _, err = decodeFrame([]byte(`{"type":"join","projectId":"abc"}`))
	assert.ErrorIs(t, err, chat.ErrMalformedFrame)

	_, _, err = decodeFrame([]byte(`{"type":"dance"}`))
	assert.ErrorIs(t, err, chat.ErrMalformedFrame)
}
