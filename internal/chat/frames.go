package chat

import (
	"encoding/json"

	apperrors "intern-portal/backend/pkg/errors"
)

// Outbound frame types
const (
	FrameDelivered = "delivered"
	FrameJoined    = "joined"
	FrameLeft      = "left"
	FrameHistory   = "history"
	FrameError     = "error"
	FramePong      = "pong"
)

type deliveredFrame struct {
	Type    string     `json:"type"`
	Message *Delivered `json:"message"`
}

type roomFrame struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"projectId"`
}

type historyFrame struct {
	Type      string      `json:"type"`
	ProjectID uint        `json:"projectId"`
	Messages  []Delivered `json:"messages"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EncodeDelivered renders the frame fanned out to a room
func EncodeDelivered(msg *Delivered) ([]byte, error) {
	return json.Marshal(deliveredFrame{Type: FrameDelivered, Message: msg})
}

func encodeRoom(frameType string, projectID uint) []byte {
	b, _ := json.Marshal(roomFrame{Type: frameType, ProjectID: projectID})
	return b
}

func encodeHistory(projectID uint, msgs []Delivered) ([]byte, error) {
	if msgs == nil {
		msgs = []Delivered{}
	}
	return json.Marshal(historyFrame{Type: FrameHistory, ProjectID: projectID, Messages: msgs})
}

// EncodeError renders err as an error frame for the originating connection
func EncodeError(err error) []byte {
	appErr := apperrors.FromError(err)
	b, _ := json.Marshal(errorFrame{
		Type:    FrameError,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
	return b
}

// EncodePong renders the reply to an application-level ping
func EncodePong() []byte {
	return []byte(`{"type":"pong"}`)
}
