package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EternisAI/agent-registry/internal/app"
	"github.com/EternisAI/agent-registry/internal/db"
	"github.com/EternisAI/agent-registry/internal/journal"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply journal schema migrations",
	Long: `Apply the journal schema migrations for the configured driver.

Examples:
  # PostgreSQL, using db.url from the config or DATABASE_URL
  agent-registry-admin migrate --journal postgres

  # SQLite file
  agent-registry-admin migrate --journal sqlite --sqlite-path ./data/ledger.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch cfg.Ledger.Journal {
		case app.JournalPostgres:
			if cfg.DB.Url == "" {
				return fmt.Errorf("db.url is required for the postgres journal")
			}
			if err := db.RunMigrations(cfg.DB.Url, cfg.DB.Schema); err != nil {
				return err
			}
		case app.JournalSQLite:
			// Opening the file runs its migrations.
			j, err := journal.NewSQLite(cmd.Context(), cfg.Ledger.SQLitePath)
			if err != nil {
				return err
			}
			if err := j.Close(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("journal %q has no schema to migrate", cfg.Ledger.Journal)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s journal migrated\n", cfg.Ledger.Journal)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
