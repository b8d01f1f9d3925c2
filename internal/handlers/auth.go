package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BT0mob40-bot/gameplay/internal/services"
)

// AuthHandler issues tokens in development. Production traffic arrives with
// tokens minted by the platform's identity service; this endpoint is never
// mounted there.
type AuthHandler struct {
	jwt *services.JWTService
}

func NewAuthHandler(jwt *services.JWTService) *AuthHandler {
	return &AuthHandler{jwt: jwt}
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
		Admin  bool  `json:"admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwt.Issue(req.UserID, req.Admin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}
