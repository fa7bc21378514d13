package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EternisAI/agent-registry/internal/app"
	"github.com/EternisAI/agent-registry/internal/auth"
	"github.com/EternisAI/agent-registry/internal/db"
)

var version = "dev"

type Config struct {
	Ledger   app.LedgerConfig
	DB       db.Config
	JWT      auth.Config
	Registry app.RegistryConfig
}

var (
	cfgFile string
	cfg     Config
)

var rootCmd = &cobra.Command{
	Use:           "agent-registry-admin",
	Short:         "Operate an agent registry journal",
	Long:          `Administrative commands for the agent registry: journal migrations, caller tokens, seeding and replay checks.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./application.yaml)")
	rootCmd.PersistentFlags().String("journal", "", "journal driver: memory, sqlite or postgres")
	rootCmd.PersistentFlags().String("sqlite-path", "", "path of the SQLite journal")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")

	_ = viper.BindPFlag("ledger.journal", rootCmd.PersistentFlags().Lookup("journal"))
	_ = viper.BindPFlag("ledger.sqlite_path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	_ = godotenv.Load()

	viper.SetDefault("ledger.journal", app.JournalSQLite)
	viper.SetDefault("registry.ownership", []string{"main"})
	viper.SetDefault("registry.usage", []string{"main"})
	viper.SetDefault("registry.pause_blocks_transfers", true)
	viper.SetDefault("registry.open_creation", true)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("application")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./cmd/agent-registry-server")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("db.url", "DATABASE_URL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
		}
	}
	_ = viper.Unmarshal(&cfg)

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openApp replays the configured journal into a fresh set of registries.
func openApp(ctx context.Context) (*app.App, func(), error) {
	j, closeJournal, err := app.OpenJournal(ctx, cfg.Ledger, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, j, cfg.Ledger, cfg.Registry)
	if err != nil {
		closeJournal()
		return nil, nil, err
	}
	return a, closeJournal, nil
}
