package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/models"
)

var testNow = time.Date(2024, time.March, 14, 15, 0, 0, 0, time.UTC)

func init() {
	config.Override(config.AppConfig{JWTSecret: "test-secret"})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testServices struct {
	db          *gorm.DB
	users       *UserService
	streaks     *StreakService
	tasks       *DailyTaskService
	surveys     *SurveyService
	purchases   *PurchaseService
	consumption *ConsumptionService
}

func newTestServices(t *testing.T) testServices {
	t.Helper()
	db := newTestDB(t)
	streaks := NewStreakService(db)
	tasks := NewDailyTaskService(db, streaks)
	purchases := NewPurchaseService(db, tasks)
	s := testServices{
		db:          db,
		users:       NewUserService(db),
		streaks:     streaks,
		tasks:       tasks,
		surveys:     NewSurveyService(db, tasks),
		purchases:   purchases,
		consumption: NewConsumptionService(db, purchases, tasks),
	}
	if err := s.surveys.EnsureDefaultQuestions(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

// createUser inserts a user directly, bypassing password hashing.
func createUser(t *testing.T, db *gorm.DB, name string, initialDone *time.Time) models.User {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x", InitialSurveyCompletedAt: initialDone}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// answersFor answers every question of stage with a valid value.
func answersFor(t *testing.T, s *SurveyService, stage string) []Answer {
	t.Helper()
	qs, err := s.Questions(context.Background(), stage)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]Answer, 0, len(qs))
	for _, q := range qs {
		v := "fine"
		switch q.Kind {
		case models.QuestionScale:
			v = "3"
		case models.QuestionChoice:
			opts, _ := decodeOptions(q.Options)
			v = opts[0]
		}
		out = append(out, Answer{QuestionID: q.ID, Value: v})
	}
	return out
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }
