// Package journal persists committed ledger operations so that registry
// state can be rebuilt by replaying them in order.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/EternisAI/agent-registry/internal/account"
)

var ErrSequenceConflict = errors.New("journal sequence conflict")

// Entry is one committed operation. Seq is the position in the ledger's
// global total order and starts at 1.
type Entry struct {
	Seq     uint64          `json:"seq"`
	ID      uuid.UUID       `json:"id"`
	Target  account.Address `json:"target"`
	Kind    string          `json:"kind"`
	Caller  account.Address `json:"caller"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Journal is an append-only, totally ordered log of entries.
// Append must reject an entry whose Seq is already taken.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Load(ctx context.Context) ([]Entry, error)
	Close() error
}
