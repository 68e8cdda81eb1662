package engine

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestBaseWasteProbabilityShape(t *testing.T) {
	tests := []struct {
		progress float64
		want     float64
	}{
		{0, 0.35},
		{0.3, 0.15},
		{0.7, 0.12},
		{1, 0},
		{-1, 0.35},
		{2, 0},
	}
	for _, tt := range tests {
		if got := BaseWasteProbability(tt.progress); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BaseWasteProbability(%v) = %v, want %v", tt.progress, got, tt.want)
		}
	}

	prev := BaseWasteProbability(0)
	for i := 1; i <= 100; i++ {
		cur := BaseWasteProbability(float64(i) / 100)
		if cur > prev+1e-9 {
			t.Fatalf("curve increases at %d%%: %v > %v", i, cur, prev)
		}
		prev = cur
	}
}

func TestSampleStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := TrendCurve{Noise: 0.2, OutlierChance: 0.5, OutlierSpike: 0.3}
	for i := 0; i < 10000; i++ {
		v := c.Sample(rng.Float64(), rng)
		if v < 0 || v > MaxWasteProbability {
			t.Fatalf("sample %v out of [0, %v]", v, MaxWasteProbability)
		}
	}
}

func TestWasteRateDeclines(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := DefaultTrendCurve()
	rate := func(progress float64) float64 {
		wasted := 0
		for i := 0; i < 5000; i++ {
			if c.Wasted(progress, rng) {
				wasted++
			}
		}
		return float64(wasted) / 5000
	}
	early, late := rate(0.05), rate(0.95)
	if early <= late {
		t.Fatalf("early waste rate %v should exceed late %v", early, late)
	}
}

func TestProgress(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 10)
	if got := Progress(from.AddDate(0, 0, 5), from, to); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Progress = %v, want 0.5", got)
	}
	if got := Progress(from, from, from); got != 0 {
		t.Fatalf("single-day range Progress = %v, want 0", got)
	}
}
