// Package arena allocates record ids.
package arena

import "github.com/EternisAI/agent-registry/internal/ledger"

// Arena stores values under 1-based, monotonically increasing ids. Ids are
// never reused; a slot is only released when the operation that allocated it
// rolls back.
type Arena[T any] struct {
	items []T
}

func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Next is the id the next Append will return.
func (a *Arena[T]) Next() uint64 {
	return uint64(len(a.items)) + 1
}

func (a *Arena[T]) Append(tx *ledger.Tx, v T) uint64 {
	a.items = append(a.items, v)
	id := uint64(len(a.items))

	tx.OnRollback(func() {
		var zero T
		a.items[id-1] = zero
		a.items = a.items[:id-1]
	})
	return id
}

func (a *Arena[T]) Get(id uint64) (T, bool) {
	if id == 0 || id > uint64(len(a.items)) {
		var zero T
		return zero, false
	}
	return a.items[id-1], true
}

func (a *Arena[T]) Len() uint64 {
	return uint64(len(a.items))
}
