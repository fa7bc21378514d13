package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/api/http/dto"
	"github.com/EternisAI/agent-registry/internal/auth"
)

type TokenHandler struct {
	jwtConfig auth.Config
}

func NewTokenHandler(jwtConfig auth.Config) *TokenHandler {
	return &TokenHandler{jwtConfig: jwtConfig}
}

// IssueToken signs a caller token for an address
// POST /admin/tokens
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	token, err := auth.GenerateToken(h.jwtConfig, req.Address, req.Label, now)
	if err != nil {
		slog.Error("Failed to issue token", "error", err, "address", req.Address.Hex())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	resp := dto.IssueTokenResponse{Token: token, Address: req.Address.Hex()}
	if h.jwtConfig.TTL > 0 {
		exp := now.Add(h.jwtConfig.TTL).UTC()
		resp.ExpiresAt = &exp
	}

	slog.Info("Caller token issued", "address", req.Address.Hex(), "label", req.Label)
	c.JSON(http.StatusCreated, resp)
}
