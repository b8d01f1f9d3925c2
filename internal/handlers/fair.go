package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BT0mob40-bot/gameplay/internal/fair"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
)

// FairHandler lets players replay outcomes from revealed seeds.
type FairHandler struct {
	gen    *fair.Generator
	wallet ledger.Gateway
}

func NewFairHandler(gen *fair.Generator, wallet ledger.Gateway) *FairHandler {
	return &FairHandler{gen: gen, wallet: wallet}
}

// GetFairness returns the caller's current client seed and nonce, the inputs
// their next mines game will be derived from.
func (h *FairHandler) GetFairness(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.wallet.Wallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get fairness state",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"fairness": gin.H{
			"client_seed":   wallet.ClientSeed,
			"current_nonce": wallet.Nonce,
			"user_id":       userID,
		},
	})
}

func (h *FairHandler) VerifyCrash(c *gin.Context) {
	var req models.VerifyCrashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	crashPoint := h.gen.CrashPoint(req.ServerSeed, req.RoundID, 0)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"crash_point": crashPoint,
			"seed_hash":   fair.SeedHash(req.ServerSeed),
			"server_seed": req.ServerSeed,
			"round_id":    req.RoundID,
		},
	})
}

func (h *FairHandler) VerifyMines(c *gin.Context) {
	var req models.VerifyMinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	mines, err := h.gen.MinesLayout(req.ServerSeed, req.ClientSeed, req.Nonce, req.MineCount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"mines":       mines,
			"seed_hash":   fair.SeedHash(req.ServerSeed),
			"server_seed": req.ServerSeed,
			"client_seed": req.ClientSeed,
			"nonce":       req.Nonce,
			"mine_count":  req.MineCount,
		},
	})
}
