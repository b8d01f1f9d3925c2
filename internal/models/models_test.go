package models_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/models"
)

func TestCentsConversion(t *testing.T) {
	amount := decimal.RequireFromString("102.115")

	cents := models.ToCents(amount)
	if cents != 10212 {
		t.Errorf("Expected 10212 cents after rounding, got %d", cents)
	}

	back := models.FromCents(cents)
	if back.StringFixed(2) != "102.12" {
		t.Errorf("Expected 102.12, got %s", back.StringFixed(2))
	}
}

func TestBetRequestValidation(t *testing.T) {
	minCents, maxCents := int64(1000), int64(10000000)

	req := &models.CrashBetRequest{Amount: decimal.NewFromInt(50), AutoCashout: 2.0}
	if err := req.Validate(minCents, maxCents); err != nil {
		t.Errorf("Valid bet failed validation: %v", err)
	}

	low := &models.CrashBetRequest{Amount: decimal.NewFromInt(5)}
	if err := low.Validate(minCents, maxCents); err == nil {
		t.Error("Bet below minimum should fail validation")
	}

	badTarget := &models.CrashBetRequest{Amount: decimal.NewFromInt(50), AutoCashout: 0.5}
	if err := badTarget.Validate(minCents, maxCents); err == nil {
		t.Error("Auto cashout at or below 1.00x should fail validation")
	}

	mines := &models.MinesStartRequest{Amount: decimal.NewFromInt(100), Mines: 25}
	if err := mines.Validate(minCents, maxCents); err == nil {
		t.Error("Mine count of 25 should fail validation")
	}
}

func TestNewWallet(t *testing.T) {
	wallet, err := models.NewWallet(123456789, 100000)
	if err != nil {
		t.Fatalf("Failed to create wallet: %v", err)
	}

	if wallet.Balance().StringFixed(2) != "1000.00" {
		t.Errorf("Expected starting balance 1000.00, got %s", wallet.Balance().StringFixed(2))
	}

	if wallet.ClientSeed == "" {
		t.Error("Wallet should have a client seed")
	}
}

func TestSessionTerminal(t *testing.T) {
	s := &models.GameSession{
		ID:       models.NewGameID(),
		UserID:   1,
		GameType: models.GameTypeMines,
		BetCents: 10000,
		Status:   models.StatusActive,
	}

	if s.Status.Terminal() {
		t.Error("Active session should not be terminal")
	}

	s.End(models.StatusCashedOut, 1.5, 15000)
	if !s.Status.Terminal() || s.EndedAt == nil {
		t.Error("Ended session should be terminal with ended_at set")
	}
	if s.Payout().StringFixed(2) != "150.00" {
		t.Errorf("Expected payout 150.00, got %s", s.Payout().StringFixed(2))
	}
}
