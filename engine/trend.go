package engine

import (
	"math/rand"
	"time"
)

// MaxWasteProbability bounds every sampled waste probability.
const MaxWasteProbability = 0.35

// Phase boundaries of the waste curve, as fractions of the seeded range.
const (
	earlyPhaseEnd  = 0.3
	middlePhaseEnd = 0.7
)

// TrendCurve perturbs the base waste curve with bounded noise and rare spikes.
type TrendCurve struct {
	Noise         float64
	OutlierChance float64
	OutlierSpike  float64
}

// DefaultTrendCurve is the curve used for demo seeding.
func DefaultTrendCurve() TrendCurve {
	return TrendCurve{Noise: 0.04, OutlierChance: 0.03, OutlierSpike: 0.15}
}

// BaseWasteProbability is the piecewise-linear curve at progress in [0, 1]:
// fast decline 0.35 -> 0.15, plateau 0.15 -> 0.12, then decline to 0.
func BaseWasteProbability(progress float64) float64 {
	p := clamp(progress, 0, 1)
	switch {
	case p < earlyPhaseEnd:
		return lerp(MaxWasteProbability, 0.15, p/earlyPhaseEnd)
	case p < middlePhaseEnd:
		return lerp(0.15, 0.12, (p-earlyPhaseEnd)/(middlePhaseEnd-earlyPhaseEnd))
	default:
		return lerp(0.12, 0, (p-middlePhaseEnd)/(1-middlePhaseEnd))
	}
}

// Sample draws the waste probability for one event at progress.
func (c TrendCurve) Sample(progress float64, rng *rand.Rand) float64 {
	v := BaseWasteProbability(progress)
	if c.Noise > 0 {
		v += (rng.Float64()*2 - 1) * c.Noise
	}
	if c.OutlierChance > 0 && rng.Float64() < c.OutlierChance {
		v += c.OutlierSpike
	}
	return clamp(v, 0, MaxWasteProbability)
}

// Wasted decides the outcome of one synthetic consumption event.
func (c TrendCurve) Wasted(progress float64, rng *rand.Rand) bool {
	return rng.Float64() < c.Sample(progress, rng)
}

// Progress is the position of day within [from, to] as a fraction; a single-day range is 0.
func Progress(day, from, to time.Time) float64 {
	total := to.Sub(from)
	if total <= 0 {
		return 0
	}
	return clamp(float64(day.Sub(from))/float64(total), 0, 1)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
