package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/utils"
)

// LeaderboardCacheTTL matches the client's 30 s poll.
const LeaderboardCacheTTL = 30 * time.Second

const leaderboardCachePrefix = "cache:leaderboard:"

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           uint   `json:"user_id"`
	Username         string `json:"username"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	TotalCompletions int    `json:"total_completions"`
}

type LeaderboardService struct {
	db      *gorm.DB
	maxSize int
}

func NewLeaderboardService(db *gorm.DB, maxSize int) *LeaderboardService {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &LeaderboardService{db: db, maxSize: maxSize}
}

// Top ranks users by effective current streak, then longest streak, then total completions.
// A streak whose last completion is older than yesterday counts as 0.
func (s *LeaderboardService) Top(ctx context.Context, limit int, now time.Time) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > s.maxSize {
		limit = s.maxSize
	}
	today := engine.DayOf(now)
	cacheKey := fmt.Sprintf("%s%s:%d", leaderboardCachePrefix, today, limit)
	var cached []LeaderboardEntry
	if utils.CacheGetJSON(cacheKey, &cached) {
		return cached, nil
	}

	yesterday, err := engine.AddDays(today, -1)
	if err != nil {
		return nil, err
	}
	var rows []LeaderboardEntry
	err = s.db.WithContext(ctx).Table("streak_records AS s").
		Select(`s.user_id AS user_id, u.username AS username,
			CASE WHEN s.last_completion_date >= ? THEN s.current_streak ELSE 0 END AS current_streak,
			s.longest_streak AS longest_streak, s.total_completions AS total_completions`, yesterday).
		Joins("JOIN users AS u ON u.id = s.user_id").
		Order("3 DESC, s.longest_streak DESC, s.total_completions DESC, s.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	utils.CacheSetJSON(cacheKey, rows, LeaderboardCacheTTL)
	return rows, nil
}

// InvalidateLeaderboard drops cached leaderboard pages.
func InvalidateLeaderboard() {
	utils.InvalidateByPrefix(leaderboardCachePrefix)
}
