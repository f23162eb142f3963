package api

import (
	"net/http"
	"strconv"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MessageController serves project chat history
type MessageController struct {
	gateway *chat.Gateway
}

// NewMessageController creates a new message controller
func NewMessageController(gateway *chat.Gateway) *MessageController {
	return &MessageController{gateway: gateway}
}

// RegisterRoutesV1 registers the versioned routes on an authenticated group
func (mc *MessageController) RegisterRoutesV1(group *gin.RouterGroup) {
	group.GET("/messages/:projectId", mc.GetProjectMessages)
}

// RegisterRoutes registers the legacy route, which answers with a bare array
func (mc *MessageController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/messages/:projectId", mc.GetProjectMessagesLegacy)
}

// GetProjectMessages returns the project's history oldest first
func (mc *MessageController) GetProjectMessages(c *gin.Context) {
	projectID, messages, ok := mc.history(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projectId": projectID,
		"messages":  messages,
		"count":     len(messages),
	})
}

// GetProjectMessagesLegacy returns the same history as a plain array
func (mc *MessageController) GetProjectMessagesLegacy(c *gin.Context) {
	_, messages, ok := mc.history(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (mc *MessageController) history(c *gin.Context) (uint, []chat.Delivered, bool) {
	id, err := strconv.ParseUint(c.Param("projectId"), 10, 64)
	if err != nil || id == 0 {
		c.Error(errors.NewBadRequestError("INVALID_PROJECT_ID", "projectId must be a positive integer"))
		return 0, nil, false
	}

	messages, err := mc.gateway.History(c.Request.Context(), uint(id))
	if err != nil {
		c.Error(err)
		return 0, nil, false
	}
	if messages == nil {
		messages = []chat.Delivered{}
	}
	return uint(id), messages, true
}
