// Package identity maps external agent identifiers to internal record ids.
package identity

import (
	"errors"
	"fmt"

	"github.com/EternisAI/agent-registry/internal/ledger"
)

var (
	ErrDuplicateIdentifier = errors.New("agent identifier already exists")
	ErrEmptyIdentifier     = errors.New("agent identifier is empty")
	ErrNotFound            = errors.New("agent identifier not found")
)

// Index holds one binding per agent identifier for the registry's lifetime.
type Index struct {
	ids map[string]uint64
}

func NewIndex() *Index {
	return &Index{ids: make(map[string]uint64)}
}

// Reserve binds agentID to id. The binding is released if tx does not commit,
// so a failed creation never leaves a dangling reservation.
func (x *Index) Reserve(tx *ledger.Tx, agentID string, id uint64) error {
	if agentID == "" {
		return ErrEmptyIdentifier
	}
	if existing, ok := x.ids[agentID]; ok {
		return fmt.Errorf("%w: %q is bound to record %d", ErrDuplicateIdentifier, agentID, existing)
	}

	x.ids[agentID] = id
	tx.OnRollback(func() { delete(x.ids, agentID) })
	return nil
}

func (x *Index) Lookup(agentID string) (uint64, error) {
	id, ok := x.ids[agentID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, agentID)
	}
	return id, nil
}

func (x *Index) Len() int {
	return len(x.ids)
}
