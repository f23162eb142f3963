package validator

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"intern-portal/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIValidator_Middleware(t *testing.T) {
	v, err := NewOpenAPIValidator("../../api/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.Version())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(errors.ErrorHandler(), v.Middleware())
	r.GET("/api/v1/messages/:projectId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/undocumented", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/3", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/undocumented", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, v.ReloadSchema())
}
