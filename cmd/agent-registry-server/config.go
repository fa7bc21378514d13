package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/EternisAI/agent-registry/internal/api/http"
	"github.com/EternisAI/agent-registry/internal/app"
	"github.com/EternisAI/agent-registry/internal/auth"
	"github.com/EternisAI/agent-registry/internal/db"
	"github.com/EternisAI/agent-registry/internal/tracing"
)

type Config struct {
	Log      LogConfig
	Http     http.Config
	Grpc     GrpcConfig
	Ledger   app.LedgerConfig
	DB       db.Config
	JWT      auth.Config
	Registry app.RegistryConfig
	Tracing  tracing.Config
}

type GrpcConfig struct {
	Port int `mapstructure:"port"`
}

var config Config

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/agent-registry-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("db.url", "DATABASE_URL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")

	viper.SetDefault("ledger.journal", app.JournalMemory)
	viper.SetDefault("registry.ownership", []string{"main"})
	viper.SetDefault("registry.usage", []string{"main"})
	viper.SetDefault("registry.pause_blocks_transfers", true)
	viper.SetDefault("registry.open_creation", true)

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		redacted := config
		redacted.JWT.Secret = "***"
		redacted.Http.AdminAPIKey = "***"
		redacted.DB.Url = "***"
		configJSON, err := json.MarshalIndent(redacted, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
