package payout_test

import (
	"math"
	"testing"
	"time"

	"github.com/BT0mob40-bot/gameplay/internal/payout"
)

const (
	houseEdge = 0.03
	maxMult   = 25.0
)

func TestMinesMultiplierIdentity(t *testing.T) {
	for mines := 1; mines <= 24; mines++ {
		if got := payout.MinesMultiplier(0, mines, houseEdge, maxMult); got != 1.0 {
			t.Errorf("mines=%d: multiplier at zero reveals should be exactly 1.0, got %f", mines, got)
		}
	}
}

func TestMinesMultiplierIncreasing(t *testing.T) {
	for mines := 1; mines <= 24; mines++ {
		safeSpots := 25 - mines
		prev := payout.MinesMultiplier(1, mines, houseEdge, maxMult)
		for revealed := 2; revealed <= safeSpots; revealed++ {
			got := payout.MinesMultiplier(revealed, mines, houseEdge, maxMult)
			if got < prev {
				t.Fatalf("mines=%d revealed=%d: multiplier decreased %f -> %f", mines, revealed, prev, got)
			}
			if got > maxMult {
				t.Fatalf("mines=%d revealed=%d: multiplier %f above cap", mines, revealed, got)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("mines=%d revealed=%d: multiplier is not finite: %f", mines, revealed, got)
			}
			prev = got
		}
	}
}

func TestMinesMultiplierBoundaries(t *testing.T) {
	// 24 mines leaves one safe cell; 1 mine leaves 24. Neither may divide by
	// zero or overflow the cap.
	if got := payout.MinesMultiplier(1, 24, houseEdge, maxMult); math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("24 mines, 1 reveal produced %f", got)
	}
	if got := payout.MinesMultiplier(24, 1, houseEdge, maxMult); got != maxMult {
		t.Errorf("1 mine with all safe cells revealed should hit the cap, got %f", got)
	}
	// Reveals past the number of safe cells are clamped, not amplified.
	if a, b := payout.MinesMultiplier(24, 1, houseEdge, maxMult), payout.MinesMultiplier(30, 1, houseEdge, maxMult); a != b {
		t.Errorf("over-reveal should clamp: %f != %f", a, b)
	}
}

func TestMinesMultiplierScenario(t *testing.T) {
	// 5 mines, 3 safe reveals: (20/20)*(20/19)*(20/18)*0.97.
	want := (20.0 / 20.0) * (20.0 / 19.0) * (20.0 / 18.0) * 0.97
	got := payout.MinesMultiplier(3, 5, houseEdge, maxMult)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %f, got %f", want, got)
	}
}

func TestCrashCurve(t *testing.T) {
	curve := payout.CrashCurve{SpeedBase: 0.3, AccelMs: 30000}

	if got := curve.MultiplierAt(0); got != 1.0 {
		t.Errorf("Multiplier at t=0 should be 1.0, got %f", got)
	}

	// 1 + (1000/1000)*(0.3 + 1000/30000) at one second.
	want := 1.0 + 1.0*(0.3+1000.0/30000.0)
	if got := curve.MultiplierAt(time.Second); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %f at 1s, got %f", want, got)
	}

	prev := 1.0
	for ms := 100; ms <= 10000; ms += 100 {
		got := curve.MultiplierAt(time.Duration(ms) * time.Millisecond)
		if got <= prev {
			t.Fatalf("curve not strictly increasing at %dms: %f -> %f", ms, prev, got)
		}
		prev = got
	}

	// Deterministic: same elapsed, same value.
	if curve.MultiplierAt(1234*time.Millisecond) != curve.MultiplierAt(1234*time.Millisecond) {
		t.Error("curve must be deterministic for a given elapsed time")
	}
}
