package service

import (
	"context"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/internal/models"
	"intern-portal/backend/internal/repository"
)

// MessageService is the chat.MessageStore backed by the messages table
type MessageService struct {
	messages     repository.MessageRepository
	historyLimit int
}

// NewMessageService creates the store. historyLimit caps ListByProject to
// the most recent messages; zero returns everything.
func NewMessageService(messages repository.MessageRepository, historyLimit int) *MessageService {
	return &MessageService{messages: messages, historyLimit: historyLimit}
}

// Append implements chat.MessageStore
func (s *MessageService) Append(ctx context.Context, d chat.Draft) (*chat.ChatMessage, error) {
	row := &models.Message{
		ProjectID: d.ProjectID,
		SenderID:  d.SenderID,
		Text:      d.Text,
	}
	if d.Attachment != nil {
		row.FileURL = d.Attachment.URL
		row.FileType = string(d.Attachment.Kind)
		row.OriginalName = d.Attachment.OriginalName
	}

	if err := s.messages.Create(ctx, row); err != nil {
		return nil, chat.ErrPersistence.Wrap(err)
	}

	msg := toChatMessage(*row)
	return &msg, nil
}

// ListByProject implements chat.MessageStore
func (s *MessageService) ListByProject(ctx context.Context, projectID uint) ([]chat.ChatMessage, error) {
	rows, err := s.messages.ListByProject(ctx, projectID, s.historyLimit)
	if err != nil {
		return nil, chat.ErrPersistence.Wrap(err)
	}

	out := make([]chat.ChatMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, toChatMessage(row))
	}
	return out, nil
}

func toChatMessage(row models.Message) chat.ChatMessage {
	msg := chat.ChatMessage{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		SenderID:  row.SenderID,
		Text:      row.Text,
		CreatedAt: row.CreatedAt,
	}
	if row.FileURL != "" {
		kind := chat.AttachmentKind(row.FileType)
		if !kind.Valid() {
			kind = chat.KindFile
		}
		msg.Attachment = &chat.Attachment{
			URL:          row.FileURL,
			Kind:         kind,
			OriginalName: row.OriginalName,
		}
	}
	return msg
}
