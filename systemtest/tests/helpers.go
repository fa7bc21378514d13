package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/auth"
)

// Env is the running system under test.
type Env struct {
	Router    *gin.Engine
	JWTSecret string
	Ownership string
	Usage     string
}

func (e *Env) bearer(t *testing.T, caller account.Address) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Config{Secret: e.JWTSecret}, caller, "systemtest", time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *Env) doJSON(t *testing.T, method, path string, caller account.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if !caller.IsZero() {
		req.Header.Set("Authorization", e.bearer(t, caller))
	}
	rr := httptest.NewRecorder()
	e.Router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthCheck(t *testing.T, env *Env) {
	rr := env.doJSON(t, http.MethodGet, "/health", account.Zero, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}
