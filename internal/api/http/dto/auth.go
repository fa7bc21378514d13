package dto

import (
	"time"

	"github.com/EternisAI/agent-registry/internal/account"
)

type IssueTokenRequest struct {
	Address account.Address `json:"address" binding:"required"`
	Label   string          `json:"label" binding:"max=64"`
}

type IssueTokenResponse struct {
	Token     string     `json:"token"`
	Address   string     `json:"address"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Seq    uint64 `json:"seq"`
}
