package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wastewise/api/models"
)

func TestPurchaseDateWindow(t *testing.T) {
	tests := []struct {
		day     string
		want    string
		wantErr error
	}{
		{"", "2024-03-14", nil},
		{"2024-03-14", "2024-03-14", nil},
		{"2024-03-07", "2024-03-07", nil},
		{"2024-03-06", "", ErrPurchaseDateOutOfRange},
		{"2024-03-15", "", ErrPurchaseDateOutOfRange},
		{"14/03/2024", "", ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			got, err := PurchaseDate(tt.day, testNow)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.Format("2006-01-02") != tt.want {
				t.Fatalf("date = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPurchaseDateUsesCallerZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 01:00 UTC on the 14th is still the 13th in New York, so the 14th is in the future.
	now := time.Date(2024, time.March, 14, 1, 0, 0, 0, time.UTC).In(ny)
	if _, err := PurchaseDate("2024-03-14", now); !errors.Is(err, ErrPurchaseDateOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	got, err := PurchaseDate("2024-03-13", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, time.March, 13, 4, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("stored as %s, want %s", got, want)
	}
}

func TestPurchaseCreateValidatesAndSanitizes(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	u := createUser(t, s.db, "shopper", ptrTime(testNow))

	for name, in := range map[string]PurchaseInput{
		"empty name":    {ItemName: "  <b></b> "},
		"negative qty":  {ItemName: "Milk", Quantity: -1},
		"negative cost": {ItemName: "Milk", Cost: -2},
		"future":        {ItemName: "Milk", PurchasedOn: "2024-03-20"},
	} {
		if _, err := s.purchases.Create(ctx, u.ID, in, testNow); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	res, err := s.purchases.Create(ctx, u.ID, PurchaseInput{ItemName: "<i>Oat</i> milk", Unit: "l"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if res.Purchase.ItemName != "Oat milk" || res.Purchase.Quantity != 1 {
		t.Fatalf("purchase = %+v", res.Purchase)
	}
	if !res.Purchase.CreatedAt.Equal(testNow) {
		t.Fatalf("created_at = %s, want service clock", res.Purchase.CreatedAt)
	}

	if _, err := s.purchases.Create(ctx, 999, PurchaseInput{ItemName: "Milk"}, testNow); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestPurchaseListAndDelete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	owner := createUser(t, s.db, "owner", ptrTime(testNow))
	other := createUser(t, s.db, "other", ptrTime(testNow))

	var ids []uint
	for i, name := range []string{"A", "B", "C"} {
		res, err := s.purchases.Create(ctx, owner.ID, PurchaseInput{ItemName: name}, testNow.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, res.Purchase.ID)
	}

	items, total, err := s.purchases.List(ctx, owner.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 2 || items[0].ItemName != "C" {
		t.Fatalf("page 1 = %d items of %d, first %q", len(items), total, items[0].ItemName)
	}

	if err := s.purchases.Delete(ctx, other.ID, ids[0]); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("foreign delete err = %v", err)
	}

	log, err := s.consumption.Create(ctx, owner.ID, ConsumptionInput{PurchaseID: &ids[0], Action: models.ActionWasted, Percentage: 40}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if log.Log.ItemName != "A" {
		t.Fatalf("log item = %q, want purchase name", log.Log.ItemName)
	}
	if err := s.purchases.Delete(ctx, owner.ID, ids[0]); err != nil {
		t.Fatal(err)
	}
	var kept models.ConsumptionLog
	if err := s.db.First(&kept, log.Log.ID).Error; err != nil {
		t.Fatal(err)
	}
	if kept.PurchaseID != nil {
		t.Fatal("consumption log should be unlinked from the deleted purchase")
	}
}

func TestConsumptionValidationAndSummary(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	u := createUser(t, s.db, "eater", ptrTime(testNow))
	other := createUser(t, s.db, "neighbour", ptrTime(testNow))

	bad := []struct {
		in   ConsumptionInput
		want error
	}{
		{ConsumptionInput{ItemName: "x", Action: "binned"}, ErrInvalidAction},
		{ConsumptionInput{ItemName: "x", Action: models.ActionWasted, Percentage: 101}, ErrInvalidPercentage},
		{ConsumptionInput{Action: models.ActionConsumed}, ErrItemNameRequired},
	}
	for _, b := range bad {
		if _, err := s.consumption.Create(ctx, u.ID, b.in, testNow); !errors.Is(err, b.want) {
			t.Errorf("Create(%+v) err = %v, want %v", b.in, err, b.want)
		}
	}

	theirs, err := s.purchases.Create(ctx, other.ID, PurchaseInput{ItemName: "Cheese", Cost: 4}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.consumption.Create(ctx, u.ID, ConsumptionInput{PurchaseID: &theirs.Purchase.ID, Action: models.ActionWasted}, testNow); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("foreign purchase err = %v", err)
	}

	p, err := s.purchases.Create(ctx, u.ID, PurchaseInput{ItemName: "Salmon", Cost: 10}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	logs := []ConsumptionInput{
		{PurchaseID: &p.Purchase.ID, Action: models.ActionWasted, Percentage: 50},
		{ItemName: "Toast", Action: models.ActionWasted, Percentage: 100},
		{ItemName: "Soup", Action: models.ActionConsumed},
		{ItemName: "Pasta", Action: models.ActionConsumed},
	}
	for _, in := range logs {
		if _, err := s.consumption.Create(ctx, u.ID, in, testNow); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := s.consumption.Summary(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ConsumedCount != 2 || sum.WastedCount != 2 || sum.WasteRate != 0.5 {
		t.Fatalf("summary = %+v", sum)
	}
	if math.Abs(sum.WastedCostEstimate-5) > 1e-9 {
		t.Fatalf("wasted cost = %v, want 5", sum.WastedCostEstimate)
	}

	items, total, err := s.consumption.List(ctx, u.ID, 1, 10)
	if err != nil || total != 4 || len(items) != 4 {
		t.Fatalf("list = %d/%d, %v", len(items), total, err)
	}
}
