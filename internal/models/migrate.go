package models

import "gorm.io/gorm"

// Migrate creates or updates every table the backend owns
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Project{}, "Members", &ProjectMember{}); err != nil {
		return err
	}
	return db.AutoMigrate(&User{}, &Project{}, &ProjectMember{}, &Message{})
}
