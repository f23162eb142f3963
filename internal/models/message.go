package models

import (
	"time"
)

// Message is one persisted chat message. Text and the file columns are both
// optional but at least one of Text or FileURL is set.
type Message struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ProjectID    uint      `json:"project_id" gorm:"not null;index:idx_messages_project_created,priority:1"`
	SenderID     uint      `json:"sender_id" gorm:"not null;index"`
	Text         string    `json:"text"`
	FileURL      string    `json:"file_url"`
	FileType     string    `json:"file_type"`
	OriginalName string    `json:"original_name"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;index:idx_messages_project_created,priority:2"`
}

// TableName overrides the table name
func (Message) TableName() string {
	return "chat_messages"
}
