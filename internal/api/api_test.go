package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/internal/service"
	"intern-portal/backend/pkg/errors"
	"intern-portal/backend/pkg/health"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listStore struct {
	msgs []chat.ChatMessage
	err  error
}

func (s *listStore) Append(context.Context, chat.Draft) (*chat.ChatMessage, error) {
	return nil, assert.AnError
}

func (s *listStore) ListByProject(_ context.Context, projectID uint) ([]chat.ChatMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []chat.ChatMessage
	for _, m := range s.msgs {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

type names map[uint]string

func (n names) DisplayName(_ context.Context, id uint) (string, error) {
	if name, ok := n[id]; ok {
		return name, nil
	}
	return "", assert.AnError
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(errors.ErrorHandler())
	return r
}

func TestMessageController_History(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &listStore{msgs: []chat.ChatMessage{
		{ID: 1, ProjectID: 2, SenderID: 1, Text: "first", CreatedAt: base},
		{ID: 2, ProjectID: 2, SenderID: 9, Text: "second", CreatedAt: base.Add(time.Minute)},
		{ID: 3, ProjectID: 4, SenderID: 1, Text: "other", CreatedAt: base},
	}}
	gateway := chat.NewGateway(chat.Deps{Store: store, Directory: names{1: "Ada"}, Logger: logger.Discard()}, chat.Options{})

	r := newEngine()
	mc := NewMessageController(gateway)
	mc.RegisterRoutesV1(r.Group("/api/v1"))
	mc.RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ProjectID uint             `json:"projectId"`
		Count     int              `json:"count"`
		Messages  []chat.Delivered `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint(2), body.ProjectID)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "first", body.Messages[0].Text)
	assert.Equal(t, "Ada", body.Messages[0].SenderName)
	assert.Equal(t, "Unknown", body.Messages[1].SenderName)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages/7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PROJECT_ID")

	store.err = assert.AnError
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/2", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "PERSISTENCE_FAILED")
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadController_Upload(t *testing.T) {
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), PublicURL: "/uploads"})
	require.NoError(t, err)
	uc := NewUploadController(service.NewUploadService(store, 1024, logger.Discard()))

	r := newEngine()
	uc.RegisterRoutesV1(r.Group("/api/v1"))

	body, ct := multipartBody(t, "file", "diagram.png", "image/png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "image", resp.FileType)
	assert.Equal(t, "diagram.png", resp.OriginalName)
	assert.True(t, strings.HasPrefix(resp.FileURL, "/uploads/"))

	body, ct = multipartBody(t, "other", "x.txt", "text/plain", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NO_FILE")

	body, ct = multipartBody(t, "file", "big.bin", "", bytes.Repeat([]byte("a"), 2048))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealthController(t *testing.T) {
	checker := health.NewChecker(logger.Discard(), time.Minute)
	dbUp := true
	checker.RegisterDatabaseCheck(func(context.Context) error {
		if dbUp {
			return nil
		}
		return assert.AnError
	})

	r := newEngine()
	NewHealthController(checker, chat.NewRegistry(), "test").RegisterRoutes(r)

	checker.RunChecks(context.Background())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)
	assert.Contains(t, w.Body.String(), `"connections":0`)

	dbUp = false
	checker.RunChecks(context.Background())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type breakerStub map[string]interface{}

func (b breakerStub) BreakerMetrics() map[string]interface{} { return b }

func TestDiagnosticsController(t *testing.T) {
	reg := chat.NewRegistry()
	reg.Register(fakeWSConn("a"))
	require.NoError(t, reg.Subscribe(fakeWSConn("a"), 3))

	r := newEngine()
	NewDiagnosticsController(reg, breakerStub{"state": "closed", "failures": 0}).RegisterRoutes(r.Group("/admin"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/diagnostics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Chat              ChatStats              `json:"chat"`
		MembershipBreaker map[string]interface{} `json:"membership_breaker"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ChatStats{Connections: 1, Rooms: 1}, body.Chat)
	assert.Equal(t, "closed", body.MembershipBreaker["state"])
}

type fakeWSConn string

func (c fakeWSConn) ID() string { return string(c) }

func (c fakeWSConn) UserID() (uint, bool) { return 1, true }

func (c fakeWSConn) Send([]byte) error { return nil }
