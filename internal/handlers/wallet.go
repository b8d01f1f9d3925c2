package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
)

type WalletHandler struct {
	wallet ledger.Gateway
}

func NewWalletHandler(wallet ledger.Gateway) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.wallet.Wallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"available":     wallet.Balance(),
			"total_wagered": wallet.TotalWagered(),
			"total_won":     wallet.TotalWon(),
			"client_seed":   wallet.ClientSeed,
			"nonce":         wallet.Nonce,
		},
	})
}

// Deposit credits the wallet against an external payment reference. The
// payment itself clears out of band; this endpoint records the settled funds.
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.WalletMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.wallet.Credit(c.Request.Context(), userID, req.Amount, ledger.Entry{
		Type:        models.EntryTypeDeposit,
		Reference:   req.Reference,
		Description: fmt.Sprintf("deposit %s", req.Amount.StringFixed(2)),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process deposit",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": wallet.Balance(),
	})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.WalletMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.wallet.Debit(c.Request.Context(), userID, req.Amount, ledger.Entry{
		Type:        models.EntryTypeWithdrawal,
		Reference:   req.Reference,
		Description: fmt.Sprintf("withdrawal %s", req.Amount.StringFixed(2)),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process withdrawal",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": wallet.Balance(),
	})
}

// GrantBonus credits promotional funds. Admin only.
func (h *WalletHandler) GrantBonus(c *gin.Context) {
	var req struct {
		UserID    int64           `json:"user_id" binding:"required"`
		Amount    decimal.Decimal `json:"amount" binding:"required"`
		Reference string          `json:"reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	wallet, err := h.wallet.Credit(c.Request.Context(), req.UserID, req.Amount, ledger.Entry{
		Type:        models.EntryTypeBonus,
		Reference:   req.Reference,
		Description: "promotional bonus",
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to grant bonus",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user_id": req.UserID,
		"balance": wallet.Balance(),
	})
}

func (h *WalletHandler) GetLedger(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	entries, err := h.wallet.Entries(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get ledger",
			"details": err.Error(),
		})
		return
	}

	response := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		response = append(response, gin.H{
			"id":          entry.ID,
			"type":        entry.Type,
			"amount":      models.FromCents(entry.AmountCents),
			"status":      entry.Status,
			"reference":   entry.Reference,
			"session_id":  entry.SessionID,
			"description": entry.Description,
			"created_at":  entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": response,
		"count":   len(response),
	})
}
