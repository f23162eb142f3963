package repository

import (
	"context"

	"intern-portal/backend/internal/models"

	"gorm.io/gorm"
)

type ProjectRepository interface {
	IsMember(ctx context.Context, userID, projectID uint) (bool, error)
	Create(ctx context.Context, project *models.Project, memberIDs ...uint) error
	AddMember(ctx context.Context, projectID, userID uint) error
}

type GormProjectRepository struct {
	db *gorm.DB
}

func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// IsMember reports whether userID is in the project's membership set
func (r *GormProjectRepository) IsMember(ctx context.Context, userID, projectID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the project and its creator plus memberIDs as members
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project, memberIDs ...uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(project).Error; err != nil {
			return err
		}

		seen := make(map[uint]struct{}, len(memberIDs)+1)
		ids := append([]uint{project.CreatedByID}, memberIDs...)
		for _, id := range ids {
			if id == 0 {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if err := tx.Create(&models.ProjectMember{ProjectID: project.ID, UserID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddMember is idempotent
func (r *GormProjectRepository) AddMember(ctx context.Context, projectID, userID uint) error {
	return r.db.WithContext(ctx).
		Where(models.ProjectMember{ProjectID: projectID, UserID: userID}).
		FirstOrCreate(&models.ProjectMember{}).Error
}
