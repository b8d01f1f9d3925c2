package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var centsFactor = decimal.NewFromInt(100)

// ToCents converts a KES amount to integer cents, rounding to 2 decimal
// places first so sub-cent noise from multiplier math cannot leak into the
// ledger.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(centsFactor).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func NewGameID() string {
	return fmt.Sprintf("game_%s_%d", time.Now().Format("20060102"), uuid.New().ID())
}

func NewEntryID() string {
	return fmt.Sprintf("tx_%s_%d", time.Now().Format("20060102"), uuid.New().ID())
}

func NewRoundID() string {
	return fmt.Sprintf("round_%s_%d", time.Now().Format("20060102"), uuid.New().ID())
}

// NewClientSeed returns 128 bits of hex-encoded entropy.
func NewClientSeed() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
