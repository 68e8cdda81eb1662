package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/utils"
)

const (
	ScaleMin          = 1
	ScaleMax          = 5
	maxTextAnswerRune = 2000
)

// Answer is one submitted answer.
type Answer struct {
	QuestionID uint   `json:"question_id"`
	Value      string `json:"value"`
}

// SurveyStatusView is the survey cadence in the shape the client expects.
type SurveyStatusView struct {
	InitialCompleted     bool       `json:"initialCompleted"`
	InitialDue           bool       `json:"initialDue"`
	LastWeeklyCompletion *time.Time `json:"lastWeeklyCompletion"`
	WeeklyDue            bool       `json:"weeklyDue"`
	WeeklyMandatory      bool       `json:"weeklyMandatory"`
	DaysSinceLastWeekly  *int       `json:"daysSinceLastWeekly"`
}

func NewSurveyStatusView(st engine.SurveyStatus) SurveyStatusView {
	return SurveyStatusView{
		InitialCompleted:     st.InitialCompleted,
		InitialDue:           st.InitialDue(),
		LastWeeklyCompletion: st.LastWeekly,
		WeeklyDue:            st.WeeklyDue(),
		WeeklyMandatory:      st.WeeklyMandatory(),
		DaysSinceLastWeekly:  st.DaysSinceLastWeekly,
	}
}

// SubmitResult is returned after a survey submission.
type SubmitResult struct {
	Stage  string           `json:"stage"`
	Saved  int              `json:"saved"`
	Survey SurveyStatusView `json:"survey"`
	Tasks  TaskStatus       `json:"tasks"`
}

// SurveyService manages the question bank, responses and the survey cadence of users.
type SurveyService struct {
	db    *gorm.DB
	tasks *DailyTaskService
}

func NewSurveyService(db *gorm.DB, tasks *DailyTaskService) *SurveyService {
	return &SurveyService{db: db, tasks: tasks}
}

// ValidStage reports whether stage names a survey stage.
func ValidStage(stage string) bool {
	switch stage {
	case models.StageInitial, models.StageWeekly, models.StageDaily:
		return true
	}
	return false
}

// Questions lists active questions of stage in display order.
func (s *SurveyService) Questions(ctx context.Context, stage string) ([]models.SurveyQuestion, error) {
	if !ValidStage(stage) {
		return nil, ErrInvalidStage
	}
	var qs []models.SurveyQuestion
	err := s.db.WithContext(ctx).
		Where("stage = ? AND active = ?", stage, true).
		Order("position ASC, id ASC").
		Find(&qs).Error
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}

// Status evaluates the survey cadence of userID at now.
func (s *SurveyService) Status(ctx context.Context, userID uint, now time.Time) (engine.SurveyStatus, error) {
	if userID == 0 {
		return engine.SurveyStatus{}, ErrInvalidUserID
	}
	var user models.User
	err := s.db.WithContext(ctx).
		Select("id", "initial_survey_completed_at", "last_weekly_survey_at").
		First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.SurveyStatus{}, ErrUserNotFound
	}
	if err != nil {
		return engine.SurveyStatus{}, fmt.Errorf("load user: %w", err)
	}
	return engine.EvaluateSurvey(user.InitialSurveyCompletedAt, user.LastWeeklySurveyAt, now), nil
}

// Submit stores answers for stage and updates the user's survey timestamps. The weekly and
// daily stages are refused until the initial survey is done.
func (s *SurveyService) Submit(ctx context.Context, userID uint, stage string, answers []Answer, now time.Time) (SubmitResult, error) {
	if userID == 0 {
		return SubmitResult{}, ErrInvalidUserID
	}
	if !ValidStage(stage) {
		return SubmitResult{}, ErrInvalidStage
	}
	if len(answers) == 0 {
		return SubmitResult{}, ErrNoAnswers
	}

	status, err := s.Status(ctx, userID, now)
	if err != nil {
		return SubmitResult{}, err
	}
	if stage != models.StageInitial && status.InitialDue() {
		return SubmitResult{}, ErrInitialSurveyRequired
	}

	questions, err := s.questionsByID(ctx, stage, answers)
	if err != nil {
		return SubmitResult{}, err
	}

	createdAt := now.UTC()
	rows := make([]models.SurveyResponse, 0, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			return SubmitResult{}, fmt.Errorf("%w: %d", ErrUnknownQuestion, a.QuestionID)
		}
		value, err := normalizeAnswer(q, a.Value)
		if err != nil {
			return SubmitResult{}, err
		}
		rows = append(rows, models.SurveyResponse{
			UserID:     userID,
			QuestionID: q.ID,
			Stage:      stage,
			Value:      value,
			CreatedAt:  createdAt,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("save responses: %w", err)
		}
		switch stage {
		case models.StageInitial:
			err := tx.Model(&models.User{}).
				Where("id = ? AND initial_survey_completed_at IS NULL", userID).
				Updates(map[string]interface{}{"initial_survey_completed_at": createdAt, "updated_at": createdAt}).Error
			if err != nil {
				return fmt.Errorf("mark initial survey: %w", err)
			}
		case models.StageWeekly:
			err := tx.Model(&models.User{}).
				Where("id = ?", userID).
				Updates(map[string]interface{}{"last_weekly_survey_at": createdAt, "updated_at": createdAt}).Error
			if err != nil {
				return fmt.Errorf("mark weekly survey: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Stage: stage, Saved: len(rows)}
	if status, err = s.Status(ctx, userID, now); err != nil {
		return SubmitResult{}, err
	}
	result.Survey = NewSurveyStatusView(status)
	if s.tasks != nil {
		if result.Tasks, err = s.tasks.Refresh(ctx, userID, now); err != nil {
			return SubmitResult{}, err
		}
	}
	return result, nil
}

func (s *SurveyService) questionsByID(ctx context.Context, stage string, answers []Answer) (map[uint]models.SurveyQuestion, error) {
	ids := make([]uint, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	var qs []models.SurveyQuestion
	err := s.db.WithContext(ctx).
		Where("id IN ? AND stage = ? AND active = ?", ids, stage, true).
		Find(&qs).Error
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uint]models.SurveyQuestion, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	return byID, nil
}

func normalizeAnswer(q models.SurveyQuestion, raw string) (string, error) {
	switch q.Kind {
	case models.QuestionScale:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < ScaleMin || n > ScaleMax {
			return "", fmt.Errorf("%w: %s expects %d-%d", ErrInvalidAnswer, q.Key, ScaleMin, ScaleMax)
		}
		return strconv.Itoa(n), nil
	case models.QuestionChoice:
		options, err := decodeOptions(q.Options)
		if err != nil {
			return "", fmt.Errorf("question %s has malformed options: %w", q.Key, err)
		}
		v := strings.TrimSpace(raw)
		for _, o := range options {
			if o == v {
				return v, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidAnswer, q.Key)
	default:
		v := utils.TruncateRunes(utils.SanitizeText(raw), maxTextAnswerRune)
		if v == "" {
			return "", fmt.Errorf("%w: %s is empty", ErrInvalidAnswer, q.Key)
		}
		return v, nil
	}
}

// EnsureDefaultQuestions inserts the built-in question bank; existing keys are left alone.
func (s *SurveyService) EnsureDefaultQuestions(ctx context.Context) error {
	qs := DefaultQuestions()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(&qs).Error
	if err != nil {
		return fmt.Errorf("seed survey questions: %w", err)
	}
	return nil
}

// DefaultQuestions is the built-in question bank.
func DefaultQuestions() []models.SurveyQuestion {
	choice := func(opts ...string) string {
		b, _ := json.Marshal(opts)
		return string(b)
	}
	return []models.SurveyQuestion{
		{Stage: models.StageInitial, Key: "household_size", Prompt: "How many people live in your household?", Kind: models.QuestionChoice, Options: choice("1", "2", "3-4", "5+"), Position: 1, Active: true},
		{Stage: models.StageInitial, Key: "shopping_frequency", Prompt: "How often do you shop for groceries?", Kind: models.QuestionChoice, Options: choice("daily", "few_times_week", "weekly", "less_often"), Position: 2, Active: true},
		{Stage: models.StageInitial, Key: "waste_awareness", Prompt: "How much food do you think your household throws away?", Kind: models.QuestionScale, Position: 3, Active: true},
		{Stage: models.StageInitial, Key: "motivation", Prompt: "What would you like to achieve by tracking food waste?", Kind: models.QuestionText, Position: 4, Active: true},
		{Stage: models.StageWeekly, Key: "weekly_waste_change", Prompt: "Compared with last week, did you waste more or less food?", Kind: models.QuestionChoice, Options: choice("less", "same", "more"), Position: 1, Active: true},
		{Stage: models.StageWeekly, Key: "weekly_confidence", Prompt: "How confident are you in planning meals around what you have?", Kind: models.QuestionScale, Position: 2, Active: true},
		{Stage: models.StageWeekly, Key: "weekly_notes", Prompt: "Anything that made it harder or easier this week?", Kind: models.QuestionText, Position: 3, Active: true},
		{Stage: models.StageDaily, Key: "daily_waste_feeling", Prompt: "How well did you avoid waste today?", Kind: models.QuestionScale, Position: 1, Active: true},
	}
}

func decodeOptions(raw string) ([]string, error) {
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, err
	}
	return options, nil
}
