package models

import "time"

// DailyTaskRecord caches which daily tasks a user had done on TaskDate (YYYY-MM-DD, caller's zone).
type DailyTaskRecord struct {
	ID                       uint      `gorm:"primaryKey" json:"id"`
	UserID                   uint      `gorm:"uniqueIndex:idx_daily_task_user_date;not null" json:"user_id"`
	TaskDate                 string    `gorm:"size:10;uniqueIndex:idx_daily_task_user_date;not null" json:"task_date"`
	LogFoodCompleted         bool      `gorm:"not null;default:false" json:"log_food_completed"`
	CompleteSurveyCompleted  bool      `gorm:"not null;default:false" json:"complete_survey_completed"`
	LogConsumeWasteCompleted bool      `gorm:"not null;default:false" json:"log_consume_waste_completed"`
	AllTasksCompleted        bool      `gorm:"not null;default:false" json:"all_tasks_completed"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}
