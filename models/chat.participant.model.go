package models

import (
	"time"

	"gorm.io/gorm"
)

type ChatParticipant struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ChatRoomID uint `gorm:"index:idx_room_user" json:"chat_room_id"`
	UserID     uint `gorm:"index:idx_room_user" json:"user_id"`

	// Membership metadata
	Role       string     `gorm:"default:'member'" json:"role"` // 'admin', 'member'
	JoinedAt   time.Time  `gorm:"autoCreateTime" json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at"`
	IsActive   bool       `gorm:"default:true" json:"is_active"` // leaving flips the flag, row stays

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User     User     `gorm:"foreignKey:UserID" json:"user"`
	ChatRoom ChatRoom `gorm:"foreignKey:ChatRoomID" json:"chat_room"`
}
