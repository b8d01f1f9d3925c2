package models

import "time"

// CrashOutcome is one settled crash round in the public rolling history. The
// server seed is included only after the round has crashed, which is what
// lets players verify the point against the pre-round hash commitment.
type CrashOutcome struct {
	RoundID    string    `json:"round_id"`
	CrashPoint float64   `json:"crash_point"`
	ServerSeed string    `json:"server_seed"`
	SeedHash   string    `json:"seed_hash"`
	EndedAt    time.Time `json:"ended_at"`
}
