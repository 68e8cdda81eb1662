package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/utils"
)

const maxSeedPerDay = 50

// SeedOptions configures one synthetic history run. From and To are calendar days in their
// location; both are inclusive.
type SeedOptions struct {
	Username string
	Password string
	From     time.Time
	To       time.Time
	PerDay   int
	Seed     int64
	Reset    bool
	Curve    engine.TrendCurve
}

// SeedReport summarises what a run wrote.
type SeedReport struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Days      int    `json:"days"`
	Purchases int    `json:"purchases"`
	Consumed  int    `json:"consumed"`
	Wasted    int    `json:"wasted"`
}

type seedFood struct {
	name     string
	category string
	unit     string
	cost     float64
}

var seedFoods = []seedFood{
	{"Milk", "dairy", "l", 1.19},
	{"Yoghurt", "dairy", "pcs", 0.89},
	{"Cheddar", "dairy", "g", 2.49},
	{"Bread", "bakery", "pcs", 2.10},
	{"Bananas", "fruit", "kg", 1.35},
	{"Apples", "fruit", "kg", 2.20},
	{"Strawberries", "fruit", "g", 3.49},
	{"Spinach", "vegetables", "g", 1.79},
	{"Tomatoes", "vegetables", "kg", 2.60},
	{"Carrots", "vegetables", "kg", 0.99},
	{"Chicken breast", "meat", "g", 5.90},
	{"Minced beef", "meat", "g", 4.80},
	{"Salmon", "fish", "g", 6.99},
	{"Eggs", "eggs", "pcs", 2.79},
	{"Rice", "grains", "kg", 1.60},
	{"Pasta", "grains", "g", 1.10},
}

// Seeder writes demo purchase and waste histories whose waste rate falls over the range.
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed creates (or reuses) the demo user and fills every day of [From, To] with PerDay
// purchases, each followed by one consumption event drawn from opts.Curve.
func (s *Seeder) Seed(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	if opts.PerDay <= 0 || opts.PerDay > maxSeedPerDay {
		return SeedReport{}, fmt.Errorf("per-day must be between 1 and %d", maxSeedPerDay)
	}
	from, _ := engine.DayBounds(opts.From)
	to, _ := engine.DayBounds(opts.To.In(opts.From.Location()))
	if to.Before(from) {
		return SeedReport{}, errors.New("to must not be before from")
	}
	if opts.Username == "" {
		opts.Username = "demo-" + uuid.NewString()[:8]
	}
	if opts.Password == "" {
		opts.Password = "demo1234"
	}
	if opts.Curve == (engine.TrendCurve{}) {
		opts.Curve = engine.DefaultTrendCurve()
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	report := SeedReport{Username: opts.Username}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.demoUser(tx, opts, from, to)
		if err != nil {
			return err
		}
		report.UserID = user.ID

		if opts.Reset {
			for _, m := range []interface{}{&models.ConsumptionLog{}, &models.Purchase{}, &models.DailyTaskRecord{}, &models.StreakRecord{}} {
				if err := tx.Where("user_id = ?", user.ID).Delete(m).Error; err != nil {
					return fmt.Errorf("reset %T: %w", m, err)
				}
			}
		}

		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			progress := engine.Progress(day, from, to)
			purchases := make([]models.Purchase, opts.PerDay)
			for i := range purchases {
				food := seedFoods[rng.Intn(len(seedFoods))]
				at := day.Add(time.Duration(8+rng.Intn(12))*time.Hour + time.Duration(rng.Intn(60))*time.Minute).UTC()
				purchases[i] = models.Purchase{
					UserID:      user.ID,
					ItemName:    food.name,
					Category:    food.category,
					Quantity:    float64(1 + rng.Intn(3)),
					Unit:        food.unit,
					Cost:        food.cost,
					PurchasedAt: day.UTC(),
					CreatedAt:   at,
					UpdatedAt:   at,
				}
			}
			if err := tx.CreateInBatches(&purchases, 100).Error; err != nil {
				return fmt.Errorf("seed purchases: %w", err)
			}

			logs := make([]models.ConsumptionLog, len(purchases))
			for i, p := range purchases {
				id := p.ID
				logs[i] = models.ConsumptionLog{
					UserID:     user.ID,
					PurchaseID: &id,
					ItemName:   p.ItemName,
					Action:     models.ActionConsumed,
					Percentage: 100,
					Quantity:   p.Quantity,
					CreatedAt:  p.CreatedAt.Add(time.Duration(1+rng.Intn(3)) * time.Hour),
				}
				if opts.Curve.Wasted(progress, rng) {
					logs[i].Action = models.ActionWasted
					logs[i].Percentage = 25 * (1 + rng.Intn(4))
					logs[i].Reason = "expired"
					report.Wasted++
				} else {
					report.Consumed++
				}
			}
			if err := tx.CreateInBatches(&logs, 100).Error; err != nil {
				return fmt.Errorf("seed consumption logs: %w", err)
			}
			report.Purchases += len(purchases)
			report.Days++
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	utils.Sugar.Infow("seeded trend data", "user", report.Username, "days", report.Days, "purchases", report.Purchases, "wasted", report.Wasted)
	return report, nil
}

// demoUser loads the named user or creates it with the initial survey done on from and the
// last weekly survey on to.
func (s *Seeder) demoUser(tx *gorm.DB, opts SeedOptions, from, to time.Time) (models.User, error) {
	var user models.User
	err := tx.Where("username = ?", opts.Username).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, fmt.Errorf("load demo user: %w", err)
	}
	hash, err := utils.HashPassword(opts.Password)
	if err != nil {
		return user, fmt.Errorf("hash password: %w", err)
	}
	at, weekly := from.UTC(), to.UTC()
	user = models.User{
		Username:                 opts.Username,
		PasswordHash:             hash,
		TermsAcceptedAt:          &at,
		InitialSurveyCompletedAt: &at,
		LastWeeklySurveyAt:       &weekly,
		CreatedAt:                at,
		UpdatedAt:                at,
	}
	if err := tx.Create(&user).Error; err != nil {
		return user, fmt.Errorf("create demo user: %w", err)
	}
	return user, nil
}
