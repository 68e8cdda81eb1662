package models

import "time"

// StreakRecord holds one user's streak. LastCompletionDate is YYYY-MM-DD or nil.
type StreakRecord struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	UserID             uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak      int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak      int       `gorm:"not null;default:0" json:"longest_streak"`
	TotalCompletions   int       `gorm:"not null;default:0" json:"total_completions"`
	LastCompletionDate *string   `gorm:"size:10;index" json:"last_completion_date"`
	CreatedAt          time.Time `json:"-"`
	UpdatedAt          time.Time `json:"-"`
}
