package chat

import (
	"strings"
	"time"
)

// AttachmentKind classifies an uploaded file
type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindVideo AttachmentKind = "video"
	KindFile  AttachmentKind = "file"
)

// Valid reports whether k is one of the known kinds
func (k AttachmentKind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindFile:
		return true
	}
	return false
}

// KindFromMIME maps a MIME type to an attachment kind
func KindFromMIME(mimeType string) AttachmentKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

// Attachment is the opaque descriptor produced by the upload endpoint
type Attachment struct {
	URL          string         `json:"url"`
	Kind         AttachmentKind `json:"kind"`
	OriginalName string         `json:"originalName"`
}

// ChatMessage is the persisted, immutable form of a message
type ChatMessage struct {
	ID         uint        `json:"id"`
	ProjectID  uint        `json:"projectId"`
	SenderID   uint        `json:"senderId"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Delivered is a persisted message with the sender's display name resolved
type Delivered struct {
	ChatMessage
	SenderName string `json:"senderName"`
}

// Draft is a message before the store assigns its id and timestamp
type Draft struct {
	ProjectID  uint
	SenderID   uint
	Text       string
	Attachment *Attachment
}

// Normalized returns a copy whose attachment kind, when not one of the known
// kinds, is downgraded to KindFile. The caller's attachment is not modified.
func (d Draft) Normalized() Draft {
	if d.Attachment != nil && !d.Attachment.Kind.Valid() {
		a := *d.Attachment
		a.Kind = KindFile
		d.Attachment = &a
	}
	return d
}

// Validate enforces that a draft targets a project and is not empty
func (d Draft) Validate() error {
	if d.ProjectID == 0 {
		return ErrInvalidMessage.WithDetails("projectId is required")
	}

	if d.Attachment != nil {
		if strings.TrimSpace(d.Attachment.URL) == "" {
			return ErrInvalidMessage.WithDetails("attachment url is required")
		}
		return nil
	}

	if strings.TrimSpace(d.Text) == "" {
		return ErrInvalidMessage
	}
	return nil
}
