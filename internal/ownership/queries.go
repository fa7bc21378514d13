package ownership

import (
	"fmt"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/metadata"
)

// lookup must be called under the ledger's shared lock.
func (r *Registry) lookup(id uint64) (*record, error) {
	rec, ok := r.records.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	return rec, nil
}

func (r *Registry) Identity(id uint64) (Identity, error) {
	var (
		out Identity
		err error
	)
	r.ledger.View(func() {
		var rec *record
		if rec, err = r.lookup(id); err == nil {
			out = rec.identity
		}
	})
	return out, err
}

// Attributes returns the record's attributes in the order they were supplied.
func (r *Registry) Attributes(id uint64) ([]Attribute, error) {
	var (
		out []Attribute
		err error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(id); err == nil {
			out = r.attributes.get(id)
		}
	})
	return out, err
}

func (r *Registry) PlatformInfo(id uint64) (PlatformInfo, error) {
	var (
		out PlatformInfo
		err error
	)
	r.ledger.View(func() {
		var rec *record
		if rec, err = r.lookup(id); err == nil {
			out = rec.platform
		}
	})
	return out, err
}

func (r *Registry) Record(id uint64) (Record, error) {
	var (
		out Record
		err error
	)
	r.ledger.View(func() {
		var rec *record
		if rec, err = r.lookup(id); err != nil {
			return
		}
		out = Record{
			ID:           id,
			Owner:        rec.owner,
			Identity:     rec.identity,
			Attributes:   r.attributes.get(id),
			PlatformInfo: rec.platform,
		}
	})
	return out, err
}

// Metadata returns the value stored under key. A key that was never written
// on an existing record yields ("", false, nil).
func (r *Registry) Metadata(id uint64, key string) (string, bool, error) {
	var (
		value string
		found bool
		err   error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(id); err == nil {
			value, found = r.metadata.Get(metadata.KindOwnership, r.address, id, key)
		}
	})
	return value, found, err
}

func (r *Registry) MetadataKeys(id uint64) ([]string, error) {
	var (
		out []string
		err error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(id); err == nil {
			out = r.metadata.Keys(metadata.KindOwnership, r.address, id)
		}
	})
	return out, err
}

func (r *Registry) MetadataPairs(id uint64) ([]metadata.Pair, error) {
	var (
		out []metadata.Pair
		err error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(id); err == nil {
			out = r.metadata.Pairs(metadata.KindOwnership, r.address, id)
		}
	})
	return out, err
}

func (r *Registry) OwnerOf(id uint64) (account.Address, error) {
	var (
		out account.Address
		err error
	)
	r.ledger.View(func() {
		var rec *record
		if rec, err = r.lookup(id); err == nil {
			out = rec.owner
		}
	})
	return out, err
}

// BalanceOf counts the records held by owner.
func (r *Registry) BalanceOf(owner account.Address) uint64 {
	var n uint64
	r.ledger.View(func() { n = r.balances[owner] })
	return n
}

// ResolveID maps an external agent identifier to its record id.
func (r *Registry) ResolveID(agentID string) (uint64, error) {
	var (
		id  uint64
		err error
	)
	r.ledger.View(func() { id, err = r.index.Lookup(agentID) })
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRecordNotFound, err)
	}
	return id, nil
}

// TokenURI is the metadata URI from the record's platform info.
func (r *Registry) TokenURI(id uint64) (string, error) {
	info, err := r.PlatformInfo(id)
	if err != nil {
		return "", err
	}
	return info.MetadataURI, nil
}

func (r *Registry) TotalRecords() uint64 {
	var n uint64
	r.ledger.View(func() { n = r.records.Len() })
	return n
}

func (r *Registry) Paused() bool {
	var p bool
	r.ledger.View(func() { p = r.paused })
	return p
}

func (r *Registry) UsageLink() account.Address {
	var a account.Address
	r.ledger.View(func() { a = r.usageLink })
	return a
}

func (r *Registry) IsApprovedForAll(owner, operator account.Address) bool {
	var ok bool
	r.ledger.View(func() { ok = r.operators[owner][operator] })
	return ok
}
