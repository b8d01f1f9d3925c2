package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the single source of truth for a user's spendable funds. Balances
// are stored as integer cents so the Redis-side scripts stay exact; callers
// work in decimal KES through the accessor methods. Game code never writes
// these fields directly; all mutation goes through the ledger gateway.
type Wallet struct {
	UserID            int64 `json:"user_id"`
	BalanceCents      int64 `json:"balance_cents"`
	TotalWageredCents int64 `json:"total_wagered_cents"`
	TotalWonCents     int64 `json:"total_won_cents"`

	// Provably-fair state for per-user games (Mines).
	ClientSeed string `json:"client_seed"`
	Nonce      int64  `json:"nonce"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Wallet) Balance() decimal.Decimal {
	return FromCents(w.BalanceCents)
}

func (w *Wallet) TotalWagered() decimal.Decimal {
	return FromCents(w.TotalWageredCents)
}

func (w *Wallet) TotalWon() decimal.Decimal {
	return FromCents(w.TotalWonCents)
}

func NewWallet(userID, startingCents int64) (*Wallet, error) {
	clientSeed, err := NewClientSeed()
	if err != nil {
		return nil, err
	}

	return &Wallet{
		UserID:       userID,
		BalanceCents: startingCents,
		ClientSeed:   clientSeed,
		Nonce:        0,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}
