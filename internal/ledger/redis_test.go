package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisGateway(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	gw := ledger.NewRedis(client, 0)
	ctx := context.Background()
	userID := time.Now().UnixNano() // fresh wallet per run

	defer client.Del(ctx, fmt.Sprintf("wallet:%d", userID), fmt.Sprintf("user:%d:ledger", userID))

	if _, err := gw.Credit(ctx, userID, decimal.NewFromInt(1000), ledger.Entry{Type: models.EntryTypeDeposit, Reference: "MPESA-TEST"}); err != nil {
		t.Fatalf("Failed to credit: %v", err)
	}

	wallet, err := gw.Debit(ctx, userID, decimal.NewFromInt(100), ledger.Entry{Type: models.EntryTypeBet})
	if err != nil {
		t.Fatalf("Failed to debit: %v", err)
	}
	if wallet.Balance().StringFixed(2) != "900.00" {
		t.Errorf("Expected balance 900.00, got %s", wallet.Balance().StringFixed(2))
	}
	if wallet.TotalWagered().StringFixed(2) != "100.00" {
		t.Errorf("Expected total wagered 100.00, got %s", wallet.TotalWagered().StringFixed(2))
	}

	if _, err := gw.Debit(ctx, userID, decimal.NewFromInt(5000), ledger.Entry{Type: models.EntryTypeBet}); err != ledger.ErrInsufficientBalance {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	entries, err := gw.Entries(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].Type != models.EntryTypeBet || entries[0].AmountCents != -10000 {
		t.Errorf("Newest entry should be the -10000 cent bet, got %+v", entries[0])
	}

	ok, err := gw.Reconcile(ctx, userID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !ok {
		t.Error("Balance does not reconcile against the ledger")
	}
}

func TestRedisConcurrentDebits(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	gw := ledger.NewRedis(client, 0)
	ctx := context.Background()
	userID := time.Now().UnixNano()

	defer client.Del(ctx, fmt.Sprintf("wallet:%d", userID), fmt.Sprintf("user:%d:ledger", userID))

	if _, err := gw.Credit(ctx, userID, decimal.NewFromInt(500), ledger.Entry{Type: models.EntryTypeDeposit}); err != nil {
		t.Fatalf("Failed to seed wallet: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gw.Debit(ctx, userID, decimal.NewFromInt(100), ledger.Entry{Type: models.EntryTypeBet}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 5 {
		t.Errorf("Expected exactly 5 of 10 debits to succeed, got %d", successes)
	}

	wallet, _ := gw.Wallet(ctx, userID)
	if wallet.BalanceCents != 0 {
		t.Errorf("Expected final balance 0, got %d", wallet.BalanceCents)
	}
}
