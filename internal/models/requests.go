package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	GridSize     = 25
	MinMineCount = 1
	MaxMineCount = 24
)

type CrashBetRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	AutoCashout float64         `json:"auto_cashout"`
}

func (r *CrashBetRequest) Validate(minCents, maxCents int64) error {
	if err := validateAmount(r.Amount, minCents, maxCents); err != nil {
		return err
	}
	if r.AutoCashout != 0 && r.AutoCashout <= 1 {
		return fmt.Errorf("auto cashout must be greater than 1.00x")
	}
	return nil
}

type MinesStartRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Mines  int             `json:"mines" binding:"required"`
}

func (r *MinesStartRequest) Validate(minCents, maxCents int64) error {
	if err := validateAmount(r.Amount, minCents, maxCents); err != nil {
		return err
	}
	if r.Mines < MinMineCount || r.Mines > MaxMineCount {
		return fmt.Errorf("mine count must be between %d and %d", MinMineCount, MaxMineCount)
	}
	return nil
}

type MinesRevealRequest struct {
	GameID   string `json:"game_id" binding:"required"`
	Position int    `json:"position"`
}

func (r *MinesRevealRequest) Validate() error {
	if r.Position < 0 || r.Position >= GridSize {
		return fmt.Errorf("position must be between 0 and %d", GridSize-1)
	}
	return nil
}

type MinesCashoutRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

type WalletMoveRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference"`
}

func (r *WalletMoveRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if ToCents(r.Amount) <= 0 {
		return fmt.Errorf("amount is below 1 cent")
	}
	return nil
}

type VerifyCrashRequest struct {
	ServerSeed string `json:"server_seed" binding:"required"`
	RoundID    string `json:"round_id" binding:"required"`
}

type VerifyMinesRequest struct {
	ServerSeed string `json:"server_seed" binding:"required"`
	ClientSeed string `json:"client_seed" binding:"required"`
	Nonce      int64  `json:"nonce"`
	MineCount  int    `json:"mine_count" binding:"required"`
}

func validateAmount(amount decimal.Decimal, minCents, maxCents int64) error {
	cents := ToCents(amount)
	if cents < minCents {
		return fmt.Errorf("minimum bet is %s", FromCents(minCents).StringFixed(2))
	}
	if cents > maxCents {
		return fmt.Errorf("maximum bet is %s", FromCents(maxCents).StringFixed(2))
	}
	return nil
}
