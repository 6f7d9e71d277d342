package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Login information
	Username string `gorm:"unique;not null;size:50" json:"username"`
	Email    string `gorm:"unique;not null;size:100" json:"email"`
	Password string `gorm:"not null" json:"-"`

	// Profile
	FullName string  `gorm:"size:100" json:"full_name"`
	Phone    *string `gorm:"unique;size:20" json:"phone"`
	ImageURL string  `json:"image_url"`
	Headline string  `gorm:"size:150" json:"headline"` // e.g. "Senior Backend Engineer"

	// Role & status
	Role     string `gorm:"default:'user';size:20" json:"role"` // user, recruiter, admin
	IsActive bool   `gorm:"default:true" json:"is_active"`      // disabled accounts cannot connect

	// System timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// Follow is a one-directional profile follow edge.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follower_followed" json:"follower_id"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_follower_followed" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserSummary is the trimmed shape embedded in chat payloads.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	ImageURL string `json:"image_url"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		ImageURL: u.ImageURL,
	}
}
