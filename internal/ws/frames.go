package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"intern-portal/backend/internal/chat"
)

// Inbound frame types. The camel-case names are the legacy event names and
// remain accepted.
const (
	frameJoin    = "join"
	frameLeave   = "leave"
	framePublish = "publish"
	framePing    = "ping"

	legacyJoin    = "joinProject"
	legacyLeave   = "leaveProject"
	legacyPublish = "sendMessage"
)

// id accepts both 7 and "7" on the wire
type id uint

func (i *id) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*i = id(v)
	return nil
}

type inboundAttachment struct {
	URL          string `json:"url"`
	Kind         string `json:"kind"`
	OriginalName string `json:"originalName"`
}

type inboundFrame struct {
	Type       string             `json:"type"`
	ProjectID  id                 `json:"projectId"`
	SenderID   id                 `json:"senderId"`
	Text       string             `json:"text"`
	Message    string             `json:"message"`
	Attachment *inboundAttachment `json:"attachment"`

	// flat attachment fields sent by older clients
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType"`
	OriginalName string `json:"originalName"`
}

// decodeFrame turns one text frame into a gateway event. ping is reported
// separately because it never reaches the gateway.
func decodeFrame(data []byte) (ev chat.Event, ping bool, err error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, chat.ErrMalformedFrame.WithDetails(err.Error())
	}

	switch f.Type {
	case frameJoin, legacyJoin:
		return chat.JoinEvent{ProjectID: uint(f.ProjectID)}, false, nil
	case frameLeave, legacyLeave:
		return chat.LeaveEvent{ProjectID: uint(f.ProjectID)}, false, nil
	case framePublish, legacyPublish:
		return f.publishEvent(), false, nil
	case framePing:
		return nil, true, nil
	case "":
		return nil, false, chat.ErrMalformedFrame.WithDetails("type is required")
	default:
		return nil, false, chat.ErrMalformedFrame.WithDetails(fmt.Sprintf("unknown frame type %q", f.Type))
	}
}

func (f inboundFrame) publishEvent() chat.PublishEvent {
	ev := chat.PublishEvent{
		ProjectID: uint(f.ProjectID),
		SenderID:  uint(f.SenderID),
		Text:      f.Text,
	}
	if ev.Text == "" {
		ev.Text = f.Message
	}

	att := f.Attachment
	if att == nil && f.FileURL != "" {
		att = &inboundAttachment{URL: f.FileURL, Kind: f.FileType, OriginalName: f.OriginalName}
	}
	if att != nil {
		kind := chat.AttachmentKind(att.Kind)
		if kind == "" {
			kind = chat.KindFile
		}
		ev.Attachment = &chat.Attachment{URL: att.URL, Kind: kind, OriginalName: att.OriginalName}
	}
	return ev
}
