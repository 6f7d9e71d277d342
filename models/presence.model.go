package models

import "time"

// Presence is the logical online state of a user, one row per user. Display
// online status also requires LastSeenAt to be within the staleness window,
// so a wedged connection does not pin a user online forever.
type Presence struct {
	UserID     uint      `gorm:"primaryKey" json:"user_id"`
	IsOnline   bool      `gorm:"default:false" json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
