package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EternisAI/agent-registry/internal/account"
)

// Postgres stores entries in the ledger_entries table. The schema is created
// by db.RunMigrations.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Append(ctx context.Context, e Entry) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ledger_entries (seq, id, target, kind, caller, executed_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		int64(e.Seq),
		pgtype.UUID{Bytes: e.ID, Valid: true},
		e.Target.Hex(),
		e.Kind,
		e.Caller.Hex(),
		e.At,
		[]byte(e.Payload),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: seq %d", ErrSequenceConflict, e.Seq)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, `
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
			seq            int64
			id             pgtype.UUID
			target, caller string
			e              Entry
			payload        []byte
		)
		if err := rows.Scan(&seq, &id, &target, &e.Kind, &caller, &e.At, &payload); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Target, err = account.ParseAddress(target); err != nil {
			return nil, fmt.Errorf("ledger entry %d target: %w", seq, err)
		}
		if e.Caller, err = account.ParseAddress(caller); err != nil {
			return nil, fmt.Errorf("ledger entry %d caller: %w", seq, err)
		}
		e.Seq = uint64(seq)
		e.ID = uuid.UUID(id.Bytes)
		e.At = e.At.UTC()
		e.Payload = payload
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

// Close is a no-op; the pool belongs to the caller.
func (p *Postgres) Close() error {
	return nil
}
