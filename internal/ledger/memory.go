package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/models"
)

// Memory is an in-process Gateway with the same semantics as the Redis
// implementation. It backs the game-engine tests and the concurrency property
// tests, where the mutex plays the role of the Lua script's atomicity.
type Memory struct {
	mu            sync.Mutex
	wallets       map[int64]*models.Wallet
	entries       map[int64][]*models.LedgerEntry
	startingCents int64
}

func NewMemory(startingCents int64) *Memory {
	return &Memory{
		wallets:       make(map[int64]*models.Wallet),
		entries:       make(map[int64][]*models.LedgerEntry),
		startingCents: startingCents,
	}
}

func (m *Memory) Debit(ctx context.Context, userID int64, amount decimal.Decimal, meta Entry) (*models.Wallet, error) {
	cents, err := checkAmount(amount)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, err := m.wallet(userID)
	if err != nil {
		return nil, err
	}
	if wallet.BalanceCents < cents {
		return nil, ErrInsufficientBalance
	}

	wallet.BalanceCents -= cents
	if meta.Type == models.EntryTypeBet {
		wallet.TotalWageredCents += cents
	}
	wallet.UpdatedAt = time.Now().UTC()
	m.entries[userID] = append(m.entries[userID], newEntry(userID, -cents, meta))

	return copyWallet(wallet), nil
}

func (m *Memory) Credit(ctx context.Context, userID int64, amount decimal.Decimal, meta Entry) (*models.Wallet, error) {
	cents, err := checkAmount(amount)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, err := m.wallet(userID)
	if err != nil {
		return nil, err
	}

	wallet.BalanceCents += cents
	if meta.Type == models.EntryTypeWin {
		wallet.TotalWonCents += cents
	}
	wallet.UpdatedAt = time.Now().UTC()
	m.entries[userID] = append(m.entries[userID], newEntry(userID, cents, meta))

	return copyWallet(wallet), nil
}

func (m *Memory) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, err := m.wallet(userID)
	if err != nil {
		return nil, err
	}
	return copyWallet(wallet), nil
}

func (m *Memory) Entries(ctx context.Context, userID int64, limit int64) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.entries[userID]
	out := make([]*models.LedgerEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		e := *all[i]
		out = append(out, &e)
	}
	return out, nil
}

func (m *Memory) NextFairness(ctx context.Context, userID int64) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, err := m.wallet(userID)
	if err != nil {
		return "", 0, err
	}
	nonce := wallet.Nonce
	wallet.Nonce++
	return wallet.ClientSeed, nonce, nil
}

// Reconcile mirrors the Redis implementation's invariant check.
func (m *Memory) Reconcile(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, err := m.wallet(userID)
	if err != nil {
		return false, err
	}

	var sum int64
	for _, e := range m.entries[userID] {
		if e.Status == models.EntryStatusCompleted {
			sum += e.AmountCents
		}
	}
	return sum+m.startingCents == wallet.BalanceCents, nil
}

// wallet returns the live record; callers must hold the lock.
func (m *Memory) wallet(userID int64) (*models.Wallet, error) {
	if w, ok := m.wallets[userID]; ok {
		return w, nil
	}
	w, err := models.NewWallet(userID, m.startingCents)
	if err != nil {
		return nil, err
	}
	m.wallets[userID] = w
	return w, nil
}

func copyWallet(w *models.Wallet) *models.Wallet {
	c := *w
	return &c
}
