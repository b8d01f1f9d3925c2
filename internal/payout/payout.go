// Package payout holds the pure multiplier curves for both games. Everything
// here is deterministic: given the same inputs every observer computes the
// same value, which is what makes replay and audit of a round possible.
package payout

import (
	"time"
)

// CrashCurve maps elapsed round time to the live multiplier. The curve
// accelerates: the per-second speed itself grows linearly with elapsed time.
type CrashCurve struct {
	SpeedBase float64 // multiplier growth per second at t=0
	AccelMs   float64 // milliseconds over which speed gains one unit
}

// MultiplierAt returns the live multiplier after elapsed time. Strictly
// increasing for positive SpeedBase and AccelMs; never below 1.0.
func (c CrashCurve) MultiplierAt(elapsed time.Duration) float64 {
	ms := float64(elapsed.Milliseconds())
	if ms <= 0 {
		return 1.0
	}
	speed := c.SpeedBase + ms/c.AccelMs
	return 1.0 + (ms/1000.0)*speed
}

// MinesMultiplier returns the payout multiplier after revealed safe cells on a
// 25-cell grid with mineCount mines. It is the fair odds of surviving
// `revealed` draws without replacement, discounted by houseEdge and capped.
// Exactly 1.0 at revealed == 0.
func MinesMultiplier(revealed, mineCount int, houseEdge, cap float64) float64 {
	if revealed <= 0 {
		return 1.0
	}

	safeSpots := 25 - mineCount
	if revealed > safeSpots {
		revealed = safeSpots
	}

	multiplier := 1.0
	for i := 0; i < revealed; i++ {
		multiplier *= float64(safeSpots) / float64(safeSpots-i)
	}
	multiplier *= 1 - houseEdge

	if multiplier > cap {
		return cap
	}
	return multiplier
}
