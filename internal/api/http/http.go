package http

import (
	"time"

	"github.com/EternisAI/agent-registry/internal/api/http/handler"
)

type Config struct {
	Port        uint           `mapstructure:"port"`
	AdminAPIKey string         `mapstructure:"admin_api_key"`
	Limits      handler.Limits `mapstructure:"limits"`
	// IdempotencyTTL is how long a response is replayed for a repeated
	// Idempotency-Key.
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}
