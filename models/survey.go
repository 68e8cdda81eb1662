package models

import "time"

// Survey stages.
const (
	StageInitial = "initial"
	StageWeekly  = "weekly"
	StageDaily   = "daily"
)

// Question kinds.
const (
	QuestionText   = "text"
	QuestionScale  = "scale"
	QuestionChoice = "choice"
)

// SurveyQuestion belongs to exactly one stage. Options is a JSON array for choice questions.
type SurveyQuestion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Stage     string    `gorm:"size:16;index;not null" json:"stage"`
	Key       string    `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Prompt    string    `gorm:"size:512;not null" json:"prompt"`
	Kind      string    `gorm:"size:16;not null" json:"kind"`
	Options   string    `gorm:"type:text" json:"options,omitempty"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SurveyResponse is append-only.
type SurveyResponse struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index:idx_responses_user_created;not null" json:"user_id"`
	QuestionID uint      `gorm:"index;not null" json:"question_id"`
	Stage      string    `gorm:"size:16;not null" json:"stage"`
	Value      string    `gorm:"type:text" json:"value"`
	CreatedAt  time.Time `gorm:"index:idx_responses_user_created" json:"created_at"`
}
