package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"

	// DeletedMessagePlaceholder replaces the content of a deleted message so
	// already-fetched pages keep stable ids and ordering.
	DeletedMessagePlaceholder = "This message was deleted"
)

// FileDescriptor is one stored attachment of a message, kept as a JSON list
// on the row.
type FileDescriptor struct {
	FileName string  `json:"file_name"`
	FileURL  string  `json:"file_url"`
	FileSize int64   `json:"file_size"`
	MimeType string  `json:"mime_type"`
	Duration float64 `json:"duration,omitempty"` // seconds, voice only
}

type Message struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ChatRoomID uint `gorm:"index;not null" json:"chat_room_id"`
	SenderID   uint `gorm:"index;not null" json:"sender_id"`
	ReceiverID uint `gorm:"index" json:"receiver_id"` // direct-room convenience denormalization

	Type    string  `gorm:"default:'text';size:10" json:"message_type"` // 'text', 'image', 'file', 'voice'
	Content *string `gorm:"type:text" json:"content"`

	// Legacy single-attachment columns, still populated with the first file
	// so older clients keep rendering.
	FileName string  `gorm:"size:255" json:"file_name,omitempty"`
	FileURL  string  `json:"file_url,omitempty"`
	FileSize int64   `json:"file_size,omitempty"`
	MimeType string  `gorm:"size:100" json:"mime_type,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	// Full attachment list.
	Files datatypes.JSONType[[]FileDescriptor] `json:"files"`

	IsRead    bool `gorm:"default:false;index" json:"is_read"`
	IsDeleted bool `gorm:"default:false" json:"is_deleted"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"sender_details"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver_details"`
}

// MessageLike is one user's like on a message. The (message, user) pair is
// unique; toggling deletes or recreates the row.
type MessageLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"uniqueIndex:idx_message_user;not null" json:"message_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_message_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
