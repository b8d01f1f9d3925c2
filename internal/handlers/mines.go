package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BT0mob40-bot/gameplay/internal/config"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/mines"
	"github.com/BT0mob40-bot/gameplay/internal/models"
)

type MinesHandler struct {
	engine *mines.Engine
	cfg    *config.Config
}

func NewMinesHandler(engine *mines.Engine, cfg *config.Config) *MinesHandler {
	return &MinesHandler{engine: engine, cfg: cfg}
}

func (h *MinesHandler) Start(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MinesStartRequest
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

	session, err := h.engine.Start(c.Request.Context(), userID, req.Amount, req.Mines)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to start game",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    minesView(session),
	})
}

func (h *MinesHandler) Reveal(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MinesRevealRequest
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

	session, err := h.engine.Reveal(c.Request.Context(), userID, req.GameID, req.Position)
	if err != nil {
		h.respondError(c, err)
		return
	}

	view := minesView(session)
	view["is_mine"] = session.Status == models.StatusLost
	view["position"] = req.Position

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  view,
	})
}

func (h *MinesHandler) CashOut(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MinesCashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session, err := h.engine.CashOut(c.Request.Context(), userID, req.GameID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  minesView(session),
	})
}

func (h *MinesHandler) GetActiveGames(c *gin.Context) {
	userID := c.GetInt64("user_id")

	games, err := h.engine.ActiveGames(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch active games",
			"details": err.Error(),
		})
		return
	}

	response := make([]gin.H, 0, len(games))
	for _, game := range games {
		response = append(response, minesView(game))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   response,
		"count":   len(response),
	})
}

func (h *MinesHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mines.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
	case errors.Is(err, mines.ErrGameOver):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Game is already over"})
	case errors.Is(err, mines.ErrInvalidPosition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Position must be between 0 and 24"})
	case errors.Is(err, mines.ErrAlreadyRevealed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Position already revealed"})
	case errors.Is(err, mines.ErrNothingRevealed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reveal at least one cell before cashing out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Request failed", "details": err.Error()})
	}
}

// minesView is the client-safe shape of a mines session. The mine layout and
// the server seed stay hidden until the game is terminal.
func minesView(session *models.GameSession) gin.H {
	data := session.MinesData
	view := gin.H{
		"id":             session.ID,
		"game_type":      session.GameType,
		"bet_amount":     session.BetAmount(),
		"mine_count":     data.MineCount,
		"revealed":       data.Revealed,
		"revealed_count": len(data.Revealed),
		"multiplier":     session.Multiplier,
		"status":         session.Status,
		"seed_hash":      data.SeedHash,
		"client_seed":    data.ClientSeed,
		"nonce":          data.Nonce,
		"created_at":     session.CreatedAt,
	}

	if session.Status.Terminal() {
		view["mines"] = data.Mines
		view["server_seed"] = data.ServerSeed
		view["payout"] = session.Payout()
		view["ended_at"] = session.EndedAt
	}
	return view
}
