package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wastewise/api/models"
)

func TestAdminStatsAndTrend(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := createUser(t, s.db, "a", ptrTime(testNow))
	createUser(t, s.db, "b", nil)

	yesterday := testNow.AddDate(0, 0, -1)
	for _, ev := range []struct {
		at     time.Time
		action string
	}{
		{yesterday, models.ActionWasted},
		{yesterday, models.ActionConsumed},
		{testNow, models.ActionConsumed},
		{testNow, models.ActionConsumed},
		{testNow, models.ActionConsumed},
		{testNow, models.ActionWasted},
	} {
		if _, err := s.consumption.Create(ctx, a.ID, ConsumptionInput{ItemName: "x", Action: ev.action}, ev.at); err != nil {
			t.Fatal(err)
		}
	}
	s.db.Create(&models.PageView{Date: "2024-03-14", Path: "/api/purchases", Count: 7})
	s.db.Create(&models.PageView{Date: "2024-03-13", Path: "/api/purchases", Count: 3})

	admin := NewAdminService(s.db)
	st, err := admin.Stats(ctx, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if st.Users != 2 || st.UsersInitialSurveyDone != 1 || st.ConsumptionLogs != 6 || st.WastedLogs != 2 || st.RequestsToday != 7 {
		t.Fatalf("stats = %+v", st)
	}

	trend, err := admin.WasteTrend(ctx, 3, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 3 || trend[0].Date != "2024-03-12" || trend[2].Date != "2024-03-14" {
		t.Fatalf("trend days = %+v", trend)
	}
	if trend[0].Consumed+trend[0].Wasted != 0 {
		t.Fatalf("empty day = %+v", trend[0])
	}
	if trend[1].Wasted != 1 || trend[1].WasteRate != 0.5 {
		t.Fatalf("yesterday = %+v", trend[1])
	}
	if trend[2].Consumed != 3 || trend[2].Wasted != 1 || trend[2].WasteRate != 0.25 {
		t.Fatalf("today = %+v", trend[2])
	}
}

func TestAdminDeleteUserCascades(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	victim := createUser(t, s.db, "victim", nil)
	bystander := createUser(t, s.db, "bystander", ptrTime(testNow))

	if _, err := s.surveys.Submit(ctx, victim.ID, models.StageInitial, answersFor(t, s.surveys, models.StageInitial), testNow); err != nil {
		t.Fatal(err)
	}
	for _, id := range []uint{victim.ID, bystander.ID} {
		p, err := s.purchases.Create(ctx, id, PurchaseInput{ItemName: "Milk"}, testNow)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.consumption.Create(ctx, id, ConsumptionInput{PurchaseID: &p.Purchase.ID, Action: models.ActionConsumed}, testNow); err != nil {
			t.Fatal(err)
		}
	}

	admin := NewAdminService(s.db)
	if err := admin.DeleteUser(ctx, victim.ID); err != nil {
		t.Fatal(err)
	}
	for _, m := range []interface{}{&models.Purchase{}, &models.ConsumptionLog{}, &models.SurveyResponse{}, &models.DailyTaskRecord{}, &models.StreakRecord{}} {
		var n int64
		s.db.Model(m).Where("user_id = ?", victim.ID).Count(&n)
		if n != 0 {
			t.Errorf("%T still has %d rows for the deleted user", m, n)
		}
	}
	var left int64
	s.db.Model(&models.Purchase{}).Where("user_id = ?", bystander.ID).Count(&left)
	if left != 1 {
		t.Fatalf("bystander purchases = %d", left)
	}

	if err := admin.DeleteUser(ctx, victim.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	users, total, err := admin.ListUsers(ctx, 1, 10)
	if err != nil || total != 1 || users[0].ID != bystander.ID {
		t.Fatalf("ListUsers = %v, %d, %v", users, total, err)
	}
}
