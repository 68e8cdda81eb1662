package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wastewise/api/models"
	"github.com/wastewise/api/utils"
)

// ConsumptionInput is a new consumption or waste event.
type ConsumptionInput struct {
	PurchaseID *uint
	ItemName   string
	Action     string
	Percentage int
	Quantity   float64
	Reason     string
}

// ConsumptionResult is a stored log plus the refreshed daily tasks.
type ConsumptionResult struct {
	Log   models.ConsumptionLog `json:"log"`
	Tasks TaskStatus            `json:"tasks"`
}

// WasteSummary aggregates a user's consumption logs.
type WasteSummary struct {
	ConsumedCount      int64   `json:"consumed_count"`
	WastedCount        int64   `json:"wasted_count"`
	WasteRate          float64 `json:"waste_rate"`
	WastedCostEstimate float64 `json:"wasted_cost_estimate"`
}

type ConsumptionService struct {
	db        *gorm.DB
	purchases *PurchaseService
	tasks     *DailyTaskService
}

func NewConsumptionService(db *gorm.DB, purchases *PurchaseService, tasks *DailyTaskService) *ConsumptionService {
	return &ConsumptionService{db: db, purchases: purchases, tasks: tasks}
}

func ValidAction(action string) bool {
	return action == models.ActionConsumed || action == models.ActionWasted
}

// Create stores a log; created_at is now and drives today's "log consume/waste" task.
func (s *ConsumptionService) Create(ctx context.Context, userID uint, in ConsumptionInput, now time.Time) (ConsumptionResult, error) {
	if userID == 0 {
		return ConsumptionResult{}, ErrInvalidUserID
	}
	if !ValidAction(in.Action) {
		return ConsumptionResult{}, ErrInvalidAction
	}
	if in.Percentage == 0 {
		in.Percentage = 100
	}
	if in.Percentage < 1 || in.Percentage > 100 {
		return ConsumptionResult{}, ErrInvalidPercentage
	}
	if in.Quantity < 0 {
		return ConsumptionResult{}, ErrInvalidQuantity
	}

	name := utils.TruncateRunes(utils.SanitizeText(in.ItemName), maxItemNameRunes)
	if in.PurchaseID != nil {
		p, err := s.purchases.Get(ctx, userID, *in.PurchaseID)
		if err != nil {
			return ConsumptionResult{}, err
		}
		if name == "" {
			name = p.ItemName
		}
	}
	if name == "" {
		return ConsumptionResult{}, ErrItemNameRequired
	}
	if err := ensureUser(ctx, s.db, userID); err != nil {
		return ConsumptionResult{}, err
	}

	log := models.ConsumptionLog{
		UserID:     userID,
		PurchaseID: in.PurchaseID,
		ItemName:   name,
		Action:     in.Action,
		Percentage: in.Percentage,
		Quantity:   in.Quantity,
		Reason:     utils.TruncateRunes(utils.SanitizeText(in.Reason), 255),
		CreatedAt:  now.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return ConsumptionResult{}, fmt.Errorf("create consumption log: %w", err)
	}

	tasks, err := s.tasks.Refresh(ctx, userID, now)
	if err != nil {
		return ConsumptionResult{}, err
	}
	return ConsumptionResult{Log: log, Tasks: tasks}, nil
}

// List returns a page of the user's logs, newest first.
func (s *ConsumptionService) List(ctx context.Context, userID uint, page, pageSize int) ([]models.ConsumptionLog, int64, error) {
	var (
		items []models.ConsumptionLog
		total int64
	)
	q := s.db.WithContext(ctx).Model(&models.ConsumptionLog{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count consumption logs: %w", err)
	}
	err := q.Order("created_at DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list consumption logs: %w", err)
	}
	return items, total, nil
}

// Summary counts consumed and wasted events and estimates the cost of what was wasted from
// the linked purchases' cost and the wasted percentage.
func (s *ConsumptionService) Summary(ctx context.Context, userID uint) (WasteSummary, error) {
	var rows []struct {
		Action string
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&models.ConsumptionLog{}).
		Select("action, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return WasteSummary{}, fmt.Errorf("count consumption logs: %w", err)
	}

	var sum WasteSummary
	for _, r := range rows {
		switch r.Action {
		case models.ActionConsumed:
			sum.ConsumedCount = r.N
		case models.ActionWasted:
			sum.WastedCount = r.N
		}
	}
	sum.WasteRate = wasteRate(sum.ConsumedCount, sum.WastedCount)

	var cost struct{ Total float64 }
	err = s.db.WithContext(ctx).Table("consumption_logs AS c").
		Select("COALESCE(SUM(p.cost * c.percentage / 100.0), 0) AS total").
		Joins("JOIN purchases AS p ON p.id = c.purchase_id").
		Where("c.user_id = ? AND c.action = ?", userID, models.ActionWasted).
		Scan(&cost).Error
	if err != nil {
		return WasteSummary{}, fmt.Errorf("estimate wasted cost: %w", err)
	}
	sum.WastedCostEstimate = cost.Total
	return sum, nil
}

func wasteRate(consumed, wasted int64) float64 {
	if consumed+wasted == 0 {
		return 0
	}
	return float64(wasted) / float64(consumed+wasted)
}
