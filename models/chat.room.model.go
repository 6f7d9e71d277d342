package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoomTypeDirect = "direct"
	RoomTypeGroup  = "group"
)

type ChatRoom struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      *string `gorm:"size:100" json:"name"`         // nullable, only set for group rooms
	Type      string  `gorm:"default:'direct'" json:"type"` // 'direct' (1-on-1) or 'group'
	CreatorID uint    `gorm:"index" json:"creator_id"`
	IsActive  bool    `gorm:"default:true" json:"is_active"` // deletion deactivates, never drops rows

	// Denormalized preview fields so the chat list does not need a
	// per-room latest-message query.
	LastMessageContent string    `gorm:"type:text" json:"last_message"`
	LastMessageAt      time.Time `json:"last_message_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// Relations
	Participants []ChatParticipant `json:"participants"`
	Messages     []Message         `json:"messages"`
}
