package repository

import (
	"github.com/chatbridge/assistant/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the chat store schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Chat{}, &models.Message{})
}
