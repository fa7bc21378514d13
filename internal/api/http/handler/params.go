package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/api/http/middleware"
)

func addressParam(c *gin.Context, name string) (account.Address, bool) {
	addr, err := account.ParseAddress(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " address"})
		return account.Zero, false
	}
	return addr, true
}

func idParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return 0, false
	}
	return id, true
}

func callerOf(c *gin.Context) (account.Address, bool) {
	caller, ok := middleware.Caller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not found in context"})
		return account.Zero, false
	}
	return caller, true
}
