package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BT0mob40-bot/gameplay/internal/config"
	"github.com/BT0mob40-bot/gameplay/internal/crash"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
)

type CrashHandler struct {
	round *crash.Round
	cfg   *config.Config
}

func NewCrashHandler(round *crash.Round, cfg *config.Config) *CrashHandler {
	return &CrashHandler{round: round, cfg: cfg}
}

func (h *CrashHandler) PlaceBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.CrashBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if err := req.Validate(h.cfg.MinBetCents, h.cfg.MaxBetCents); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.round.PlaceBet(c.Request.Context(), userID, req.Amount, req.AutoCashout)
	if err != nil {
		switch {
		case errors.Is(err, crash.ErrDuplicateBet):
			c.JSON(http.StatusConflict, gin.H{"error": "Bet already placed this round"})
		case errors.Is(err, crash.ErrBettingClosed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Betting is closed, wait for the next round"})
		case errors.Is(err, ledger.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place bet", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game": gin.H{
			"id":           session.ID,
			"round_id":     session.CrashData.RoundID,
			"bet_amount":   session.BetAmount(),
			"auto_cashout": session.CrashData.AutoCashout,
			"status":       session.Status,
			"created_at":   session.CreatedAt,
		},
	})
}

func (h *CrashHandler) CashOut(c *gin.Context) {
	userID := c.GetInt64("user_id")

	session, err := h.round.CashOut(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, crash.ErrNoActiveBet):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active bet this round"})
		case errors.Is(err, crash.ErrAlreadyCashedOut):
			c.JSON(http.StatusConflict, gin.H{"error": "Bet already cashed out"})
		case errors.Is(err, crash.ErrRoundCrashed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Round already crashed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cash out", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": gin.H{
			"game_id":    session.ID,
			"round_id":   session.CrashData.RoundID,
			"multiplier": session.Multiplier,
			"bet_amount": session.BetAmount(),
			"payout":     session.Payout(),
			"status":     session.Status,
		},
	})
}

// GetRound returns the live round state: phase, seed hash commitment, and the
// current multiplier. The crash point is only present once the round crashed.
func (h *CrashHandler) GetRound(c *gin.Context) {
	snap, err := h.round.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Round engine unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   snap,
	})
}

func (h *CrashHandler) GetHistory(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 {
		limit = 10
	}

	outcomes, err := h.round.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get round history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  outcomes,
		"count":   len(outcomes),
	})
}
