package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a persistent conversation thread belonging to one user
type Chat struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"userId" gorm:"size:36;not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the last-activity timestamp. It is only written on creation
	// and by the explicit touch step, never by the ORM on its own.
	UpdatedAt *time.Time `json:"updatedAt,omitempty" gorm:"autoUpdateTime:false"`
	Messages  []Message  `json:"messages,omitempty" gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns an ID when the caller did not
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// LastActivity returns the last-activity time, falling back to creation time
func (c Chat) LastActivity() time.Time {
	if c.UpdatedAt != nil && !c.UpdatedAt.IsZero() {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// LastMessage returns the newest message of an eagerly loaded chat
func (c Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ChatTouch is the result of advancing a chat's last-activity timestamp
type ChatTouch struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}
