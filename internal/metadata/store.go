// Package metadata is the open-ended key/value extension shared by ownership
// and usage records.
package metadata

import (
	"errors"
	"fmt"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/ledger"
)

var ErrArityMismatch = errors.New("metadata keys and values differ in length")

// Kind distinguishes the record kinds that carry metadata.
type Kind string

const (
	KindOwnership Kind = "ownership"
	KindUsage     Kind = "usage"
)

// Pair is one key/value entry.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ref[ID comparable] struct {
	kind     Kind
	contract account.Address
	id       ID
}

type entry struct {
	keys   []string
	values map[string]string
}

// Store keys values by (record kind, registry contract, record id, key). One
// store serves every registry on a ledger. Keys keep the order in which they
// were first written.
type Store[ID comparable] struct {
	records map[ref[ID]]*entry
}

func NewStore[ID comparable]() *Store[ID] {
	return &Store[ID]{records: make(map[ref[ID]]*entry)}
}

// SetAll writes keys[i]=values[i] for every i on record id of the contract
// tx runs against. A key supplied twice keeps the last value (and its first
// position).
func (s *Store[ID]) SetAll(tx *ledger.Tx, kind Kind, id ID, keys, values []string) error {
	if len(keys) != len(values) {
		return fmt.Errorf("%w: %d keys, %d values", ErrArityMismatch, len(keys), len(values))
	}
	if len(keys) == 0 {
		return nil
	}

	r := ref[ID]{kind: kind, contract: tx.Contract(), id: id}
	prev := s.records[r]

	next := &entry{values: make(map[string]string, len(keys))}
	if prev != nil {
		next.keys = append(next.keys, prev.keys...)
		for k, v := range prev.values {
			next.values[k] = v
		}
	}
	for i, k := range keys {
		if _, seen := next.values[k]; !seen {
			next.keys = append(next.keys, k)
		}
		next.values[k] = values[i]
	}

	s.records[r] = next
	tx.OnRollback(func() {
		if prev == nil {
			delete(s.records, r)
			return
		}
		s.records[r] = prev
	})
	return nil
}

// Get returns the value for key. A missing key is not an error.
func (s *Store[ID]) Get(kind Kind, contract account.Address, id ID, key string) (string, bool) {
	e, ok := s.records[ref[ID]{kind: kind, contract: contract, id: id}]
	if !ok {
		return "", false
	}
	v, ok := e.values[key]
	return v, ok
}

func (s *Store[ID]) Keys(kind Kind, contract account.Address, id ID) []string {
	e, ok := s.records[ref[ID]{kind: kind, contract: contract, id: id}]
	if !ok {
		return []string{}
	}
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Pairs returns every entry of a record in key order.
func (s *Store[ID]) Pairs(kind Kind, contract account.Address, id ID) []Pair {
	e, ok := s.records[ref[ID]{kind: kind, contract: contract, id: id}]
	if !ok {
		return []Pair{}
	}
	out := make([]Pair, len(e.keys))
	for i, k := range e.keys {
		out[i] = Pair{Key: k, Value: e.values[k]}
	}
	return out
}
