package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/utils"
)

// PurchaseBackfillDays is how far back a purchase date may be logged.
const PurchaseBackfillDays = 7

const maxItemNameRunes = 255

// PurchaseInput is a new purchase. PurchasedOn is YYYY-MM-DD in the caller's zone, empty for today.
type PurchaseInput struct {
	ItemName    string
	Category    string
	Barcode     string
	Quantity    float64
	Unit        string
	Cost        float64
	PurchasedOn string
}

// PurchaseResult is a stored purchase plus the refreshed daily tasks.
type PurchaseResult struct {
	Purchase models.Purchase `json:"purchase"`
	Tasks    TaskStatus      `json:"tasks"`
}

type PurchaseService struct {
	db    *gorm.DB
	tasks *DailyTaskService
}

func NewPurchaseService(db *gorm.DB, tasks *DailyTaskService) *PurchaseService {
	return &PurchaseService{db: db, tasks: tasks}
}

// Create stores a purchase. The row's created_at is now, whatever day the purchase is logged for,
// so only purchases entered today count toward today's "log food" task.
func (s *PurchaseService) Create(ctx context.Context, userID uint, in PurchaseInput, now time.Time) (PurchaseResult, error) {
	if userID == 0 {
		return PurchaseResult{}, ErrInvalidUserID
	}
	name := utils.TruncateRunes(utils.SanitizeText(in.ItemName), maxItemNameRunes)
	if name == "" {
		return PurchaseResult{}, ErrItemNameRequired
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return PurchaseResult{}, ErrInvalidQuantity
	}
	if in.Cost < 0 {
		return PurchaseResult{}, ErrInvalidCost
	}
	purchasedAt, err := PurchaseDate(in.PurchasedOn, now)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := ensureUser(ctx, s.db, userID); err != nil {
		return PurchaseResult{}, err
	}

	p := models.Purchase{
		UserID:      userID,
		ItemName:    name,
		Category:    utils.TruncateRunes(utils.SanitizeText(in.Category), 64),
		Barcode:     strings.TrimSpace(in.Barcode),
		Quantity:    in.Quantity,
		Unit:        utils.TruncateRunes(utils.SanitizeText(in.Unit), 32),
		Cost:        in.Cost,
		PurchasedAt: purchasedAt,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return PurchaseResult{}, fmt.Errorf("create purchase: %w", err)
	}

	tasks, err := s.tasks.Refresh(ctx, userID, now)
	if err != nil {
		return PurchaseResult{}, err
	}
	return PurchaseResult{Purchase: p, Tasks: tasks}, nil
}

// PurchaseDate resolves a logical purchase day against now: empty means today, and the day
// must lie within the last PurchaseBackfillDays days. The result is local midnight in UTC.
func PurchaseDate(day string, now time.Time) (time.Time, error) {
	today, _ := engine.DayBounds(now)
	if strings.TrimSpace(day) == "" {
		return today.UTC(), nil
	}
	t, err := time.ParseInLocation(engine.DayLayout, strings.TrimSpace(day), now.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if t.After(today) || t.Before(today.AddDate(0, 0, -PurchaseBackfillDays)) {
		return time.Time{}, ErrPurchaseDateOutOfRange
	}
	return t.UTC(), nil
}

// List returns a page of the user's purchases, newest first.
func (s *PurchaseService) List(ctx context.Context, userID uint, page, pageSize int) ([]models.Purchase, int64, error) {
	var (
		items []models.Purchase
		total int64
	)
	q := s.db.WithContext(ctx).Model(&models.Purchase{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}
	err := q.Order("created_at DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	return items, total, nil
}

// Get loads one purchase owned by userID.
func (s *PurchaseService) Get(ctx context.Context, userID, id uint) (models.Purchase, error) {
	var p models.Purchase
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrPurchaseNotFound
	}
	if err != nil {
		return p, fmt.Errorf("load purchase: %w", err)
	}
	return p, nil
}

// Delete removes a purchase owned by userID. Consumption logs keep their copy of the item name
// and lose the link.
func (s *PurchaseService) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Purchase{})
		if res.Error != nil {
			return fmt.Errorf("delete purchase: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPurchaseNotFound
		}
		err := tx.Model(&models.ConsumptionLog{}).
			Where("purchase_id = ? AND user_id = ?", id, userID).
			Update("purchase_id", nil).Error
		if err != nil {
			return fmt.Errorf("unlink consumption logs: %w", err)
		}
		return nil
	})
}
