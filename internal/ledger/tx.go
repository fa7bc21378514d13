package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/EternisAI/agent-registry/internal/account"
)

// Event is emitted by a committed operation. For creation events Caller is the
// creator of RecordID.
type Event struct {
	ID       uuid.UUID         `json:"id"`
	Seq      uint64            `json:"seq"`
	At       time.Time         `json:"at"`
	Contract account.Address   `json:"contract"`
	Name     string            `json:"name"`
	RecordID uint64            `json:"record_id"`
	Caller   account.Address   `json:"caller"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Tx is the scope of one operation. It is only valid inside the apply
// function (or replay handler) it was handed to.
type Tx struct {
	ctx      context.Context
	seq      uint64
	caller   account.Address
	contract account.Address
	now      time.Time
	replay   bool
	undo     []func()
	events   []Event
}

func (tx *Tx) Context() context.Context { return tx.ctx }

// Caller is the authenticated identity that submitted the operation.
func (tx *Tx) Caller() account.Address { return tx.caller }

// Contract is the registry instance the operation was submitted to.
func (tx *Tx) Contract() account.Address { return tx.contract }

// Now is the ledger time of the operation.
func (tx *Tx) Now() time.Time { return tx.now }

func (tx *Tx) Seq() uint64 { return tx.seq }

// Replaying reports whether the operation is being rebuilt from the journal.
// Gates that depend on current configuration do not apply to replayed
// operations; they were accepted under the policy in force when they ran.
func (tx *Tx) Replaying() bool { return tx.replay }

// OnRollback registers fn to undo a mutation if the operation does not commit.
func (tx *Tx) OnRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

// Emit buffers an event; it is published only if the operation commits.
func (tx *Tx) Emit(name string, recordID uint64, fields map[string]string) {
	tx.events = append(tx.events, Event{
		ID:       uuid.New(),
		Seq:      tx.seq,
		At:       tx.now,
		Contract: tx.contract,
		Name:     name,
		RecordID: recordID,
		Caller:   tx.caller,
		Fields:   fields,
	})
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}
