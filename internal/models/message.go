package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SenderRole identifies who authored a message
type SenderRole string

const (
	SenderUser SenderRole = "user"
	SenderBot  SenderRole = "bot"
)

// Valid reports whether r is one of the two known roles
func (r SenderRole) Valid() bool {
	return r == SenderUser || r == SenderBot
}

// Message is one immutable turn in a chat
type Message struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	ChatID     string     `json:"chatId" gorm:"size:36;not null;index:idx_messages_chat_created,priority:1"`
	Content    string     `json:"content" gorm:"type:text;not null"`
	SenderType SenderRole `json:"senderType" gorm:"column:sender_type;size:8;not null"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"index:idx_messages_chat_created,priority:2"`
}

// BeforeCreate assigns an ID when the caller did not
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
