package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
)

func TestDebitInsufficientBalance(t *testing.T) {
	gw := ledger.NewMemory(0)
	ctx := context.Background()
	userID := int64(1)

	if _, err := gw.Debit(ctx, userID, decimal.NewFromInt(10), ledger.Entry{Type: models.EntryTypeBet}); err != ledger.ErrInsufficientBalance {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	wallet, err := gw.Wallet(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get wallet: %v", err)
	}
	if wallet.BalanceCents != 0 {
		t.Errorf("Failed debit must leave balance unchanged, got %d", wallet.BalanceCents)
	}
	entries, _ := gw.Entries(ctx, userID, 10)
	if len(entries) != 0 {
		t.Errorf("Failed debit must not write a ledger entry, got %d", len(entries))
	}
}

func TestInvalidAmount(t *testing.T) {
	gw := ledger.NewMemory(100000)
	ctx := context.Background()

	if _, err := gw.Debit(ctx, 1, decimal.Zero, ledger.Entry{Type: models.EntryTypeBet}); err != ledger.ErrInvalidAmount {
		t.Errorf("Zero debit should be ErrInvalidAmount, got %v", err)
	}
	if _, err := gw.Credit(ctx, 1, decimal.NewFromInt(-5), ledger.Entry{Type: models.EntryTypeWin}); err != ledger.ErrInvalidAmount {
		t.Errorf("Negative credit should be ErrInvalidAmount, got %v", err)
	}
}

func TestConcurrentDebitsNoOverdraft(t *testing.T) {
	// Balance B split across N concurrent debits of B/N: every attempt either
	// succeeds or reports insufficient balance, total debited never exceeds B.
	const n = 20
	gw := ledger.NewMemory(0)
	ctx := context.Background()
	userID := int64(42)

	balance := decimal.NewFromInt(1000)
	if _, err := gw.Credit(ctx, userID, balance, ledger.Entry{Type: models.EntryTypeDeposit}); err != nil {
		t.Fatalf("Failed to seed wallet: %v", err)
	}

	// 2x the covering number of debits so roughly half must fail.
	chunk := decimal.NewFromInt(100)
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.Debit(ctx, userID, chunk, ledger.Entry{Type: models.EntryTypeBet})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if err != ledger.ErrInsufficientBalance {
				t.Errorf("Unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 10 {
		t.Errorf("Expected exactly 10 successful debits of 100 from 1000, got %d", successes)
	}

	wallet, _ := gw.Wallet(ctx, userID)
	if wallet.BalanceCents != 0 {
		t.Errorf("Expected final balance 0, got %d cents", wallet.BalanceCents)
	}
	if wallet.BalanceCents < 0 {
		t.Error("Balance went negative under concurrent debits")
	}
}

func TestReconciliation(t *testing.T) {
	gw := ledger.NewMemory(0)
	ctx := context.Background()
	userID := int64(7)

	moves := []struct {
		credit bool
		amount int64
		typ    models.EntryType
	}{
		{true, 1000, models.EntryTypeDeposit},
		{false, 100, models.EntryTypeBet},
		{true, 250, models.EntryTypeWin},
		{true, 50, models.EntryTypeBonus},
		{false, 400, models.EntryTypeWithdrawal},
		{false, 100, models.EntryTypeBet},
	}

	for _, mv := range moves {
		var err error
		if mv.credit {
			_, err = gw.Credit(ctx, userID, decimal.NewFromInt(mv.amount), ledger.Entry{Type: mv.typ})
		} else {
			_, err = gw.Debit(ctx, userID, decimal.NewFromInt(mv.amount), ledger.Entry{Type: mv.typ})
		}
		if err != nil {
			t.Fatalf("Move %+v failed: %v", mv, err)
		}
	}

	ok, err := gw.Reconcile(ctx, userID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !ok {
		t.Error("Wallet balance does not equal the sum of completed entries")
	}

	wallet, _ := gw.Wallet(ctx, userID)
	if wallet.Balance().StringFixed(2) != "700.00" {
		t.Errorf("Expected balance 700.00, got %s", wallet.Balance().StringFixed(2))
	}
}

func TestNextFairnessAdvances(t *testing.T) {
	gw := ledger.NewMemory(0)
	ctx := context.Background()

	seed1, n1, err := gw.NextFairness(ctx, 9)
	if err != nil {
		t.Fatalf("NextFairness failed: %v", err)
	}
	seed2, n2, _ := gw.NextFairness(ctx, 9)

	if seed1 == "" || seed1 != seed2 {
		t.Errorf("Client seed should be stable, got %q then %q", seed1, seed2)
	}
	if n2 != n1+1 {
		t.Errorf("Nonce should advance by one, got %d then %d", n1, n2)
	}
}
