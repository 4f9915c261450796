package spacedrep

import (
	"math"
	"time"
)

// BaseIntervals defines the review interval in days for each box.
// Box 1 maps to index 0.
var BaseIntervals = []int{1, 3, 7, 16, 35, 80}

const (
	// MinBox is the least mastered box; new cards start here.
	MinBox = 1

	// MaxBox is the most mastered box.
	MaxBox = 6

	// emaAlpha weights the newest response time in the running average.
	emaAlpha = 0.3

	// promotionSuccessRate is the running accuracy required to leave box 4+.
	promotionSuccessRate = 0.7

	// NoiseMin and NoiseMax bound the interval jitter factor [min, max).
	NoiseMin = 0.85
	NoiseMax = 1.15

	// DefaultMaxResponseSeconds caps recorded response times. Longer
	// answers are treated as idle time, not effort.
	DefaultMaxResponseSeconds = 300.0
)

// Source provides the uniform random numbers used for interval jitter.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// promotionThreshold returns the consecutive correct answers needed to
// leave box.
func promotionThreshold(box int) int {
	return min(max(box, 2), 4)
}

// performanceFactor scales intervals by the running success rate once a
// card has a few attempts.
func performanceFactor(totalAttempts, totalCorrect int) float64 {
	if totalAttempts < 3 {
		return 1.0
	}
	rate := float64(totalCorrect) / float64(totalAttempts)
	switch {
	case rate >= 0.9:
		return 1.3
	case rate >= 0.7:
		return 1.0
	case rate >= 0.5:
		return 0.8
	default:
		return 0.6
	}
}

// noiseFactor draws a jitter multiplier in [NoiseMin, NoiseMax). A nil
// source yields 1.0.
func noiseFactor(rng Source) float64 {
	if rng == nil {
		return 1.0
	}
	return NoiseMin + rng.Float64()*(NoiseMax-NoiseMin)
}

// intervalDays combines the four factors and floors the result at one day.
func intervalDays(box int, d Difficulty, totalAttempts, totalCorrect int, noise float64) int {
	base := float64(BaseIntervals[clampBox(box)-1])
	days := int(math.Round(base * d.IntervalFactor() * performanceFactor(totalAttempts, totalCorrect) * noise))
	return max(days, 1)
}

// ClampResponseSeconds bounds a response time to [0, ceiling]. A
// non-positive ceiling disables the upper bound.
func ClampResponseSeconds(seconds, ceiling float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	if ceiling > 0 && seconds > ceiling {
		return ceiling
	}
	return seconds
}

func clampBox(box int) int {
	return min(max(box, MinBox), MaxBox)
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b (negative if b is earlier),
// reading both dates in loc so that times stored with different offsets
// fall on the same calendar.
func daysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
