package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
	EntryTypeBet        EntryType = "bet"
	EntryTypeWin        EntryType = "win"
	EntryTypeBonus      EntryType = "bonus"
	EntryTypeAdjustment EntryType = "adjustment"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// LedgerEntry is one row of the append-only audit trail. Amounts are signed
// cents: debits negative, credits positive. The sum of a user's completed
// entries always equals their wallet balance (the reconciliation invariant);
// entries are therefore never trimmed or rewritten.
type LedgerEntry struct {
	ID          string      `json:"id"`
	UserID      int64       `json:"user_id"`
	Type        EntryType   `json:"type"`
	AmountCents int64       `json:"amount_cents"`
	Status      EntryStatus `json:"status"`
	Reference   string      `json:"reference,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (e *LedgerEntry) Amount() decimal.Decimal {
	return FromCents(e.AmountCents)
}
