package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account of the tracker. Passwords are stored as bcrypt hashes only.
type User struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	Username                 string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash             string     `gorm:"size:255;not null" json:"-"`
	TermsAcceptedAt          *time.Time `json:"terms_accepted_at"`
	InitialSurveyCompletedAt *time.Time `json:"initial_survey_completed_at"`
	LastWeeklySurveyAt       *time.Time `json:"last_weekly_survey_at"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	return nil
}
