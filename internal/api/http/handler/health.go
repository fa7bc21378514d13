package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/api/http/dto"
	"github.com/EternisAI/agent-registry/internal/ledger"
)

type HealthHandler struct {
	ledger *ledger.Ledger
}

func NewHealthHandler(l *ledger.Ledger) *HealthHandler {
	return &HealthHandler{ledger: l}
}

func (h *HealthHandler) Check(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Seq: h.ledger.Seq()})
}
