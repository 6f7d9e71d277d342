package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationApplicationReceived = "application_received"
	NotificationProposalViewed      = "proposal_viewed"
	NotificationChatMessage         = "chat_message_received"
	NotificationFollow              = "follow"
)

type Notification struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RecipientID uint   `gorm:"index;not null" json:"recipient_id"`
	Type        string `gorm:"size:50;not null" json:"type"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Body        string `gorm:"type:text" json:"body"`

	// Correlation ids, set depending on Type.
	MessageID  *uint `json:"message_id,omitempty"`
	ChatRoomID *uint `json:"chat_room_id,omitempty"`
	SenderID   *uint `json:"sender_id,omitempty"`
	ProposalID *uint `json:"proposal_id,omitempty"`

	IsRead bool `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Device is one registered push destination. The newest active token per
// (user, platform) is the one that matters; stale duplicates get deactivated
// when the provider rejects them.
type Device struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"size:255;not null;index" json:"token"`
	Platform  string    `gorm:"size:10;not null" json:"platform"` // 'ios', 'android'
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
