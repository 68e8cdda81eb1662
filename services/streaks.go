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
	"github.com/wastewise/api/utils"
)

// maxStreakAttempts bounds the compare-and-swap loop in RecordCompletion.
const maxStreakAttempts = 5

// StreakStatus is the streak as reported to clients.
type StreakStatus struct {
	CurrentStreak      int     `json:"current_streak"`
	LongestStreak      int     `json:"longest_streak"`
	TotalCompletions   int     `json:"total_completions"`
	LastCompletionDate *string `json:"last_completion_date"`
}

// StreakService owns the streak_records table.
type StreakService struct {
	db *gorm.DB
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{db: db}
}

// Get returns the effective streak on the calendar day of now. Users without a record read as zero.
func (s *StreakService) Get(ctx context.Context, userID uint, now time.Time) (StreakStatus, error) {
	if userID == 0 {
		return StreakStatus{}, ErrInvalidUserID
	}
	rec, found, err := s.load(ctx, userID)
	if err != nil {
		return StreakStatus{}, err
	}
	if !found {
		return StreakStatus{}, nil
	}
	return toStatus(engine.Effective(toStreak(rec), engine.DayOf(now))), nil
}

// RecordCompletion applies a full-day completion on day (YYYY-MM-DD). Calling it again on the
// same day is a no-op. Writes are conditional on the last completion date that was read, so
// two concurrent callers can never both advance the same day.
func (s *StreakService) RecordCompletion(ctx context.Context, userID uint, day string) (StreakStatus, engine.Transition, error) {
	if userID == 0 {
		return StreakStatus{}, 0, ErrInvalidUserID
	}
	for attempt := 0; attempt < maxStreakAttempts; attempt++ {
		rec, found, err := s.load(ctx, userID)
		if err != nil {
			return StreakStatus{}, 0, err
		}

		cur := engine.Streak{}
		if found {
			cur = toStreak(rec)
		}
		next, tr, err := engine.Advance(cur, day)
		if err != nil {
			return StreakStatus{}, 0, err
		}
		if tr == engine.TransitionSameDay {
			return toStatus(cur), tr, nil
		}

		var applied bool
		if found {
			applied, err = s.swap(ctx, userID, rec.LastCompletionDate, next)
		} else {
			applied, err = s.insert(ctx, userID, next)
		}
		if err != nil {
			return StreakStatus{}, 0, err
		}
		if applied {
			InvalidateLeaderboard()
			utils.Sugar.Debugw("streak advanced", "user_id", userID, "day", day, "transition", tr.String(), "current", next.Current)
			return toStatus(next), tr, nil
		}
	}
	return StreakStatus{}, 0, ErrStreakContention
}

func (s *StreakService) load(ctx context.Context, userID uint) (models.StreakRecord, bool, error) {
	var rec models.StreakRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("load streak: %w", err)
	}
	return rec, true, nil
}

func (s *StreakService) insert(ctx context.Context, userID uint, next engine.Streak) (bool, error) {
	day := next.LastCompletion
	rec := models.StreakRecord{
		UserID:             userID,
		CurrentStreak:      next.Current,
		LongestStreak:      next.Longest,
		TotalCompletions:   next.Total,
		LastCompletionDate: &day,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, fmt.Errorf("create streak: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *StreakService) swap(ctx context.Context, userID uint, prev *string, next engine.Streak) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.StreakRecord{}).Where("user_id = ?", userID)
	if prev == nil {
		q = q.Where("last_completion_date IS NULL")
	} else {
		q = q.Where("last_completion_date = ?", *prev)
	}
	res := q.Updates(map[string]interface{}{
		"current_streak":       next.Current,
		"longest_streak":       next.Longest,
		"total_completions":    next.Total,
		"last_completion_date": next.LastCompletion,
		"updated_at":           time.Now().UTC(),
	})
	if res.Error != nil {
		return false, fmt.Errorf("update streak: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func toStreak(rec models.StreakRecord) engine.Streak {
	s := engine.Streak{
		Current: rec.CurrentStreak,
		Longest: rec.LongestStreak,
		Total:   rec.TotalCompletions,
	}
	if rec.LastCompletionDate != nil {
		s.LastCompletion = *rec.LastCompletionDate
	}
	return s
}

func toStatus(s engine.Streak) StreakStatus {
	st := StreakStatus{
		CurrentStreak:    s.Current,
		LongestStreak:    s.Longest,
		TotalCompletions: s.Total,
	}
	if s.LastCompletion != "" {
		day := s.LastCompletion
		st.LastCompletionDate = &day
	}
	return st
}
