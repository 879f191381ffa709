package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chatbridge/assistant/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("record not found")

type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	TouchChat(ctx context.Context, id string, at time.Time) error
	AppendMessage(ctx context.Context, message *models.Message) error
	LatestMessageTime(ctx context.Context, chatID string) (time.Time, error)
	ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

type GormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Omit("Messages").Create(chat).Error
}

func (r *GormChatRepository) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *GormChatRepository) TouchChat(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormChatRepository) AppendMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// LatestMessageTime returns the creation time of the newest message, or the zero time
func (r *GormChatRepository) LatestMessageTime(ctx context.Context, chatID string) (time.Time, error) {
	var latest models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(1).
		Find(&latest).Error
	if err != nil {
		return time.Time{}, err
	}
	return latest.CreatedAt, nil
}

func (r *GormChatRepository) ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("COALESCE(updated_at, created_at) DESC").
		Order("created_at DESC").
		Find(&chats).Error
	return chats, err
}

func (r *GormChatRepository) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}
