package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
)

// TaskStatus is one user's daily-task state for one calendar day.
type TaskStatus struct {
	Date                     string        `json:"date"`
	LogFoodCompleted         bool          `json:"log_food_completed"`
	CompleteSurveyCompleted  bool          `json:"complete_survey_completed"`
	LogConsumeWasteCompleted bool          `json:"log_consume_waste_completed"`
	AllTasksCompleted        bool          `json:"all_tasks_completed"`
	Streak                   *StreakStatus `json:"streak,omitempty"`
}

// DailyTaskService resolves the three daily tasks from the rows users create and keeps
// daily_task_records in step. Completing all three advances the streak.
type DailyTaskService struct {
	db      *gorm.DB
	streaks *StreakService
}

func NewDailyTaskService(db *gorm.DB, streaks *StreakService) *DailyTaskService {
	return &DailyTaskService{db: db, streaks: streaks}
}

// Refresh evaluates the day containing now (in now's location) for userID. Completion flags
// only ever move from false to true within a day, so deleting a purchase later does not
// take back a task that was already counted.
func (s *DailyTaskService) Refresh(ctx context.Context, userID uint, now time.Time) (TaskStatus, error) {
	if userID == 0 {
		return TaskStatus{}, ErrInvalidUserID
	}
	if err := ensureUser(ctx, s.db, userID); err != nil {
		return TaskStatus{}, err
	}

	day := engine.DayOf(now)
	start, end := engine.DayBounds(now)
	start, end = start.UTC(), end.UTC()

	logFood, err := existsBetween(ctx, s.db, &models.Purchase{}, userID, start, end)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("check purchases: %w", err)
	}
	survey, err := existsBetween(ctx, s.db, &models.SurveyResponse{}, userID, start, end)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("check survey responses: %w", err)
	}
	consume, err := existsBetween(ctx, s.db, &models.ConsumptionLog{}, userID, start, end)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("check consumption logs: %w", err)
	}

	rec, err := s.persist(ctx, userID, day, logFood, survey, consume)
	if err != nil {
		return TaskStatus{}, err
	}

	status := TaskStatus{
		Date:                     day,
		LogFoodCompleted:         rec.LogFoodCompleted,
		CompleteSurveyCompleted:  rec.CompleteSurveyCompleted,
		LogConsumeWasteCompleted: rec.LogConsumeWasteCompleted,
		AllTasksCompleted:        rec.AllTasksCompleted,
	}
	if status.AllTasksCompleted && s.streaks != nil {
		streak, _, err := s.streaks.RecordCompletion(ctx, userID, day)
		if err != nil {
			return TaskStatus{}, err
		}
		status.Streak = &streak
	}
	return status, nil
}

// Record returns the stored record for day without recomputing it.
func (s *DailyTaskService) Record(ctx context.Context, userID uint, day string) (models.DailyTaskRecord, bool, error) {
	var rec models.DailyTaskRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND task_date = ?", userID, day).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("load daily task record: %w", err)
	}
	return rec, true, nil
}

// persist creates the day's row if needed and then raises individual flags. Each flag is
// set with its own UPDATE so concurrent refreshes can only add completions.
func (s *DailyTaskService) persist(ctx context.Context, userID uint, day string, logFood, survey, consume bool) (models.DailyTaskRecord, error) {
	db := s.db.WithContext(ctx)
	seed := models.DailyTaskRecord{UserID: userID, TaskDate: day}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "task_date"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return models.DailyTaskRecord{}, fmt.Errorf("create daily task record: %w", err)
	}

	set := map[string]interface{}{}
	if logFood {
		set["log_food_completed"] = true
	}
	if survey {
		set["complete_survey_completed"] = true
	}
	if consume {
		set["log_consume_waste_completed"] = true
	}
	row := db.Model(&models.DailyTaskRecord{}).Where("user_id = ? AND task_date = ?", userID, day)
	if len(set) > 0 {
		set["updated_at"] = time.Now().UTC()
		if err := row.Session(&gorm.Session{}).Updates(set).Error; err != nil {
			return models.DailyTaskRecord{}, fmt.Errorf("update daily task record: %w", err)
		}
	}
	err = row.Session(&gorm.Session{}).
		Where("log_food_completed = ? AND complete_survey_completed = ? AND log_consume_waste_completed = ? AND all_tasks_completed = ?", true, true, true, false).
		Update("all_tasks_completed", true).Error
	if err != nil {
		return models.DailyTaskRecord{}, fmt.Errorf("complete daily task record: %w", err)
	}

	rec, found, err := s.Record(ctx, userID, day)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, fmt.Errorf("daily task record for user %d on %s vanished", userID, day)
	}
	return rec, nil
}

// existsBetween reports whether model has a row for userID with created_at in [start, end).
func existsBetween(ctx context.Context, db *gorm.DB, model interface{}, userID uint, start, end time.Time) (bool, error) {
	var ids []uint
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func ensureUser(ctx context.Context, db *gorm.DB, userID uint) error {
	var ids []uint
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Limit(1).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if len(ids) == 0 {
		return ErrUserNotFound
	}
	return nil
}
