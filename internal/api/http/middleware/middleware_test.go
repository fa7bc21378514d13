package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const secret = "middleware-secret"

var alice = account.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func bearer(t *testing.T, caller account.Address) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Config{Secret: secret}, caller, "", time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func TestCallerAuth(t *testing.T) {
	router := gin.New()
	router.GET("/whoami", CallerAuth(secret), func(c *gin.Context) {
		caller, ok := Caller(c)
		require.True(t, ok)
		c.String(http.StatusOK, caller.Hex())
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
		{name: "valid token", header: bearer(t, alice), status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, alice.Hex(), w.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	newRouter := func(key string) *gin.Engine {
		r := gin.New()
		r.GET("/admin", APIKeyAuth(key), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
	newRouter("").ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(apiKeyHeader, "wrong")
	newRouter("right").ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(apiKeyHeader, "right")
	newRouter("right").ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	calls := 0
	router := gin.New()
	router.POST("/things", CallerAuth(secret), Idempotency(time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})

	send := func(key string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost, "/things", nil)
		req.Header.Set("Authorization", bearer(t, alice))
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("abc")
	second := send("abc")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	send("")
	send("other")
	assert.Equal(t, 3, calls)
}

func TestIdempotencyDropsServerErrors(t *testing.T) {
	calls := 0
	router := gin.New()
	router.POST("/flaky", CallerAuth(secret), Idempotency(time.Minute), func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusOK} {
		req, _ := http.NewRequest(http.MethodPost, "/flaky", nil)
		req.Header.Set("Authorization", bearer(t, alice))
		req.Header.Set(IdempotencyHeader, "k")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReleasesKeyAfterPanic(t *testing.T) {
	calls := 0
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/boom", CallerAuth(secret), Idempotency(time.Minute), func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("handler failed")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK} {
		req, _ := http.NewRequest(http.MethodPost, "/boom", nil)
		req.Header.Set("Authorization", bearer(t, alice))
		req.Header.Set(IdempotencyHeader, "k")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "fixed")
	router.ServeHTTP(w, req)
	assert.Equal(t, "fixed", w.Header().Get(requestIDHeader))
}
