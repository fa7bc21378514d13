package usage

import (
	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/ledger"
)

// OwnershipSource is the capability a usage registry needs from an ownership
// registry: who holds a record right now. HolderAt is called inside the
// running operation and must not take the ledger lock.
type OwnershipSource interface {
	Address() account.Address
	HolderAt(tx *ledger.Tx, id uint64) (account.Address, error)
}

// Resolver finds the ownership registry deployed at an address.
type Resolver interface {
	Resolve(addr account.Address) (OwnershipSource, bool)
}

type ResolverFunc func(addr account.Address) (OwnershipSource, bool)

func (f ResolverFunc) Resolve(addr account.Address) (OwnershipSource, bool) { return f(addr) }
