package models

import "time"

// Project is a unit of work interns are assigned to. Members is the
// authoritative membership set consulted before every chat publish.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	CreatedByID uint      `gorm:"index" json:"created_by"`
	Members     []User    `gorm:"many2many:project_members;" json:"members,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectMember is the join row behind Project.Members
type ProjectMember struct {
	ProjectID uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey;index"`
}

// TableName overrides the table name
func (ProjectMember) TableName() string {
	return "project_members"
}
