package repository

import (
	"context"

	"intern-portal/backend/internal/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByProject(ctx context.Context, projectID uint, limit int) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListByProject returns the project's messages oldest first, ties broken by id.
// A positive limit keeps only the most recent limit messages.
func (r *GormMessageRepository) ListByProject(ctx context.Context, projectID uint, limit int) ([]models.Message, error) {
	var messages []models.Message

	if limit <= 0 {
		err := r.db.WithContext(ctx).
			Where("project_id = ?", projectID).
			Order("created_at ASC").
			Order("id ASC").
			Find(&messages).Error
		return messages, err
	}

	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
