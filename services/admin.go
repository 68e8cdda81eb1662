package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
)

// MaxTrendDays bounds the waste-trend window.
const MaxTrendDays = 365

// AdminStats is the dashboard headline.
type AdminStats struct {
	Users                  int64   `json:"users"`
	UsersInitialSurveyDone int64   `json:"users_initial_survey_done"`
	Purchases              int64   `json:"purchases"`
	ConsumptionLogs        int64   `json:"consumption_logs"`
	WastedLogs             int64   `json:"wasted_logs"`
	WasteRate              float64 `json:"waste_rate"`
	SurveyResponses        int64   `json:"survey_responses"`
	ActiveStreaks          int64   `json:"active_streaks"`
	RequestsToday          int64   `json:"requests_today"`
}

// TrendPoint is one day of the waste trend.
type TrendPoint struct {
	Date      string  `json:"date"`
	Consumed  int64   `json:"consumed"`
	Wasted    int64   `json:"wasted"`
	WasteRate float64 `json:"waste_rate"`
}

// AdminService backs the admin dashboard and user management.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Stats collects dashboard counters; "today" is the calendar day of now.
func (s *AdminService) Stats(ctx context.Context, now time.Time) (AdminStats, error) {
	db := s.db.WithContext(ctx)
	var st AdminStats
	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&st.Users, &models.User{}, "", nil},
		{&st.UsersInitialSurveyDone, &models.User{}, "initial_survey_completed_at IS NOT NULL", nil},
		{&st.Purchases, &models.Purchase{}, "", nil},
		{&st.ConsumptionLogs, &models.ConsumptionLog{}, "", nil},
		{&st.WastedLogs, &models.ConsumptionLog{}, "action = ?", []interface{}{models.ActionWasted}},
		{&st.SurveyResponses, &models.SurveyResponse{}, "", nil},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return AdminStats{}, fmt.Errorf("count %T: %w", c.model, err)
		}
	}
	st.WasteRate = wasteRate(st.ConsumptionLogs-st.WastedLogs, st.WastedLogs)

	today := engine.DayOf(now)
	yesterday, err := engine.AddDays(today, -1)
	if err != nil {
		return AdminStats{}, err
	}
	if err := db.Model(&models.StreakRecord{}).Where("last_completion_date >= ?", yesterday).Count(&st.ActiveStreaks).Error; err != nil {
		return AdminStats{}, fmt.Errorf("count active streaks: %w", err)
	}

	var views struct{ Total int64 }
	if err := db.Model(&models.PageView{}).Select("COALESCE(SUM(count), 0) AS total").Where("date = ?", today).Scan(&views).Error; err != nil {
		return AdminStats{}, fmt.Errorf("sum page views: %w", err)
	}
	st.RequestsToday = views.Total
	return st, nil
}

// WasteTrend buckets consumption logs of the last days calendar days (ending today, in now's
// location) into per-day counts. Days without logs are present with zero counts.
func (s *AdminService) WasteTrend(ctx context.Context, days int, now time.Time) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	if days > MaxTrendDays {
		days = MaxTrendDays
	}
	todayStart, end := engine.DayBounds(now)
	start := todayStart.AddDate(0, 0, -(days - 1))

	var logs []models.ConsumptionLog
	err := s.db.WithContext(ctx).
		Select("action", "created_at").
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("load consumption logs: %w", err)
	}

	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := engine.DayOf(start.AddDate(0, 0, i))
		points[i].Date = day
		index[day] = i
	}
	for _, l := range logs {
		i, ok := index[engine.DayOf(l.CreatedAt.In(now.Location()))]
		if !ok {
			continue
		}
		if l.Action == models.ActionWasted {
			points[i].Wasted++
		} else {
			points[i].Consumed++
		}
	}
	for i := range points {
		points[i].WasteRate = wasteRate(points[i].Consumed, points[i].Wasted)
	}
	return points, nil
}

// ListUsers pages through all accounts, newest first.
func (s *AdminService) ListUsers(ctx context.Context, page, pageSize int) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// DeleteUser removes the account and everything recorded for it in one transaction.
func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidUserID
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []interface{}{
			&models.ConsumptionLog{},
			&models.Purchase{},
			&models.SurveyResponse{},
			&models.DailyTaskRecord{},
			&models.StreakRecord{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete %T: %w", m, err)
			}
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	InvalidateLeaderboard()
	return nil
}
