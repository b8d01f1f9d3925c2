// Package ledger is the only way funds move. A debit or credit and its
// ledger entry commit together or not at all, which is what keeps a wallet's
// balance equal to the sum of its completed entries.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/models"
)

var (
	// ErrInsufficientBalance rejects a debit that would overdraw the wallet.
	// The wallet is untouched and no entry is written.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount rejects a non-positive amount before touching the wallet.
	ErrInvalidAmount = errors.New("amount must be positive")

	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInconsistency means a balance change and its entry could not commit
	// together. It is fatal to the operation and must reach the alert log.
	ErrInconsistency = errors.New("ledger inconsistency")
)

// Entry carries the audit metadata for one balance movement. The sign of the
// recorded amount is decided by the operation: Debit writes a negative entry,
// Credit a positive one.
type Entry struct {
	Type        models.EntryType
	Reference   string
	SessionID   string
	Description string
}

// Gateway is the wallet boundary both games settle through. Debit succeeds
// only if the balance covers the amount, as a single atomic check-and-set;
// concurrent debits can never overdraw. Credit failures are surfaced, never
// dropped. Both return the wallet after the movement.
type Gateway interface {
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, entry Entry) (*models.Wallet, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, entry Entry) (*models.Wallet, error)

	// Wallet returns the current wallet state, creating it on first use.
	Wallet(ctx context.Context, userID int64) (*models.Wallet, error)

	// Entries lists the newest ledger entries, most recent first.
	Entries(ctx context.Context, userID int64, limit int64) ([]*models.LedgerEntry, error)

	// NextFairness returns the wallet's client seed and current nonce, then
	// advances the nonce. Each provably-fair outcome consumes one nonce.
	NextFairness(ctx context.Context, userID int64) (clientSeed string, nonce int64, err error)
}

func newEntry(userID, amountCents int64, meta Entry) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:          models.NewEntryID(),
		UserID:      userID,
		Type:        meta.Type,
		AmountCents: amountCents,
		Status:      models.EntryStatusCompleted,
		Reference:   meta.Reference,
		SessionID:   meta.SessionID,
		Description: meta.Description,
		CreatedAt:   time.Now().UTC(),
	}
}

func checkAmount(amount decimal.Decimal) (int64, error) {
	cents := models.ToCents(amount)
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
