package ledger

import (
	"fmt"
	"sync"

	"github.com/EternisAI/agent-registry/internal/account"
)

// Contract is anything deployed at an address on the ledger.
type Contract interface {
	Address() account.Address
}

// Directory resolves deployed contracts of one kind by address.
type Directory[T Contract] struct {
	mu        sync.RWMutex
	contracts map[account.Address]T
	order     []account.Address
}

func NewDirectory[T Contract]() *Directory[T] {
	return &Directory[T]{contracts: make(map[account.Address]T)}
}

func (d *Directory[T]) Add(c T) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	addr := c.Address()
	if _, exists := d.contracts[addr]; exists {
		return fmt.Errorf("contract already deployed at %s", addr.Hex())
	}
	d.contracts[addr] = c
	d.order = append(d.order, addr)
	return nil
}

func (d *Directory[T]) Lookup(addr account.Address) (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.contracts[addr]
	return c, ok
}

// All returns contracts in deployment order.
func (d *Directory[T]) All() []T {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]T, 0, len(d.order))
	for _, addr := range d.order {
		out = append(out, d.contracts[addr])
	}
	return out
}
