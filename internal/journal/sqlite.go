package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/db"
)

// SQLite stores entries in a local database file. It suits single-node
// deployments and the admin CLI.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and migrates it.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "./data/ledger.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One writer keeps the file-level ordering identical to the ledger's.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	if err := db.RunSQLiteMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Append(ctx context.Context, e Entry) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO ledger_entries (seq, id, target, kind, caller, executed_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		int64(e.Seq),
		e.ID.String(),
		e.Target.Hex(),
		e.Kind,
		e.Caller.Hex(),
		e.At.UTC().Format(time.RFC3339Nano),
		string(e.Payload),
	)
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT) {
			return fmt.Errorf("%w: seq %d", ErrSequenceConflict, e.Seq)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT seq, id, target, kind, caller, executed_at, payload
		FROM ledger_entries
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			seq                             int64
			id, target, caller, at, payload string
			e                               Entry
		)
		if err := rows.Scan(&seq, &id, &target, &e.Kind, &caller, &at, &payload); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("ledger entry %d id: %w", seq, err)
		}
		if e.Target, err = account.ParseAddress(target); err != nil {
			return nil, fmt.Errorf("ledger entry %d target: %w", seq, err)
		}
		if e.Caller, err = account.ParseAddress(caller); err != nil {
			return nil, fmt.Errorf("ledger entry %d caller: %w", seq, err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("ledger entry %d time: %w", seq, err)
		}
		e.Seq = uint64(seq)
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}
