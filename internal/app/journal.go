package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EternisAI/agent-registry/internal/db"
	"github.com/EternisAI/agent-registry/internal/journal"
)

// OpenJournal opens the configured journal, running migrations first. The
// returned close function releases the journal and any pool behind it.
func OpenJournal(ctx context.Context, cfg LedgerConfig, dbCfg db.Config) (journal.Journal, func(), error) {
	switch cfg.Journal {
	case JournalMemory, "":
		slog.Warn("Using in-memory journal, state is lost on restart")
		j := journal.NewMemory()
		return j, func() { _ = j.Close() }, nil

	case JournalSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "agent-registry.db"
		}
		j, err := journal.NewSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		slog.Info("Using SQLite journal", "path", path)
		return j, func() {
			if err := j.Close(); err != nil {
				slog.Error("Failed to close SQLite journal", "error", err)
			}
		}, nil

	case JournalPostgres:
		if err := db.RunMigrations(dbCfg.Url, dbCfg.Schema); err != nil {
			return nil, nil, fmt.Errorf("migrate journal: %w", err)
		}
		pool, err := db.InitDB(ctx, dbCfg)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using PostgreSQL journal", "schema", dbCfg.Schema)
		return journal.NewPostgres(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown journal driver %q", cfg.Journal)
	}
}
