package logic

import "math"

const (
	earlySurrenderSeconds = 900  // 15 minutes
	lateGameSeconds       = 2100 // 35 minutes
)

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// KDA is (kills+assists)/deaths; a deathless record scores kills+assists.
func KDA(kills, deaths, assists int) float64 {
	if deaths == 0 {
		return float64(kills + assists)
	}
	return Round2(float64(kills+assists) / float64(deaths))
}

// PerMinute normalizes a match total by game length. Zero-length games yield 0.
func PerMinute(total int, durationSeconds int) float64 {
	minutes := float64(durationSeconds) / 60
	if minutes == 0 {
		return 0
	}
	return Round2(float64(total) / minutes)
}

// DamageEfficiency is damage dealt per damage taken. Untouched players keep the raw dealt value.
func DamageEfficiency(dealt, taken int) float64 {
	if taken == 0 {
		return float64(dealt)
	}
	return Round2(float64(dealt) / float64(taken))
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Round2(num / den)
}
