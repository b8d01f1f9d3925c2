package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type GameType string

const (
	GameTypeCrash GameType = "crash"
	GameTypeMines GameType = "mines"
)

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusWon       SessionStatus = "won"
	StatusLost      SessionStatus = "lost"
	StatusCashedOut SessionStatus = "cashed_out"
)

// Terminal reports whether a status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusCashedOut
}

// GameSession is the persistent record of one wager. The game-specific state
// lives in CrashData/MinesData; for Mines that state is server-authoritative
// and the mine layout is never sent to the client while the session is active.
type GameSession struct {
	ID          string        `json:"id"`
	UserID      int64         `json:"user_id"`
	GameType    GameType      `json:"game_type"`
	BetCents    int64         `json:"bet_cents"`
	Multiplier  float64       `json:"multiplier"`
	PayoutCents int64         `json:"payout_cents"`
	Status      SessionStatus `json:"status"`

	CrashData *CrashData `json:"crash_data,omitempty"`
	MinesData *MinesData `json:"mines_data,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type CrashData struct {
	RoundID     string  `json:"round_id"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`
}

type MinesData struct {
	MineCount  int    `json:"mine_count"`
	Mines      []int  `json:"mines"`
	Revealed   []int  `json:"revealed"`
	Nonce      int64  `json:"nonce"`
	ClientSeed string `json:"client_seed"`
	ServerSeed string `json:"server_seed"`
	SeedHash   string `json:"seed_hash"`
}

func (s *GameSession) BetAmount() decimal.Decimal {
	return FromCents(s.BetCents)
}

func (s *GameSession) Payout() decimal.Decimal {
	return FromCents(s.PayoutCents)
}

// End marks the session terminal at the given status.
func (s *GameSession) End(status SessionStatus, multiplier float64, payoutCents int64) {
	now := time.Now().UTC()
	s.Status = status
	s.Multiplier = multiplier
	s.PayoutCents = payoutCents
	s.EndedAt = &now
}
