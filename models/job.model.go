package models

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null;unique" json:"name"`
	Slug string `gorm:"size:100;not null;unique" json:"slug"`
}

type JobPost struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	RecruiterID uint    `gorm:"index" json:"recruiter_id"`
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Salary      float64 `json:"salary"`
	Category    string  `gorm:"size:50;index" json:"category"`
	Location    string  `gorm:"size:100" json:"location"`
	Status      string  `gorm:"default:'open';size:20" json:"status"` // open, closed

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// Relations
	Recruiter User `gorm:"foreignKey:RecruiterID" json:"recruiter"`
}

// Proposal is a candidate's application to a job post. It exists here mostly
// as a notification trigger: submitting one notifies the recruiter, the
// recruiter viewing one notifies the candidate.
type Proposal struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	JobPostID   uint   `gorm:"index;not null" json:"job_post_id"`
	CandidateID uint   `gorm:"index;not null" json:"candidate_id"`
	CoverLetter string `gorm:"type:text" json:"cover_letter"`
	Status      string `gorm:"default:'submitted';size:20" json:"status"` // submitted, viewed, accepted, rejected
	ViewedAt    *time.Time `json:"viewed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// Relations
	JobPost   JobPost `gorm:"foreignKey:JobPostID" json:"job_post"`
	Candidate User    `gorm:"foreignKey:CandidateID" json:"candidate"`
}
