package usage

import (
	"fmt"
	"strings"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/metadata"
)

// OwnershipReference returns the ownership record id and registry validated
// when the usage record was created.
func (r *Registry) OwnershipReference(usageID uint64) (uint64, account.Address, error) {
	terms, err := r.Terms(usageID)
	if err != nil {
		return 0, account.Zero, err
	}
	return terms.OwnershipTokenID, terms.OwnershipContract, nil
}

func (r *Registry) Terms(usageID uint64) (Terms, error) {
	var (
		out Terms
		err error
	)
	r.ledger.View(func() {
		var rec *record
		if rec, err = r.lookup(usageID); err == nil {
			out = rec.terms
		}
	})
	return out, err
}

func (r *Registry) Record(usageID uint64) (Record, error) {
	var (
		out Record
		err error
	)
	r.ledger.View(func() {
		var rec *record
		if rec, err = r.lookup(usageID); err == nil {
			out = Record{ID: usageID, Creator: rec.creator, Terms: rec.terms, TotalSupply: rec.supply}
		}
	})
	return out, err
}

// Metadata returns ("", false, nil) for a key that was never written on an
// existing record.
func (r *Registry) Metadata(usageID uint64, key string) (string, bool, error) {
	var (
		value string
		found bool
		err   error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(usageID); err == nil {
			value, found = r.metadata.Get(metadata.KindUsage, r.address, usageID, key)
		}
	})
	return value, found, err
}

func (r *Registry) MetadataKeys(usageID uint64) ([]string, error) {
	var (
		out []string
		err error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(usageID); err == nil {
			out = r.metadata.Keys(metadata.KindUsage, r.address, usageID)
		}
	})
	return out, err
}

func (r *Registry) MetadataPairs(usageID uint64) ([]metadata.Pair, error) {
	var (
		out []metadata.Pair
		err error
	)
	r.ledger.View(func() {
		if _, err = r.lookup(usageID); err == nil {
			out = r.metadata.Pairs(metadata.KindUsage, r.address, usageID)
		}
	})
	return out, err
}

// BalanceOf is zero for any unknown holder or record.
func (r *Registry) BalanceOf(holder account.Address, usageID uint64) uint64 {
	var n uint64
	r.ledger.View(func() { n = r.balances[usageID][holder] })
	return n
}

func (r *Registry) TotalSupply(usageID uint64) (uint64, error) {
	rec, err := r.Record(usageID)
	if err != nil {
		return 0, err
	}
	return rec.TotalSupply, nil
}

// IsWindowActive compares the current ledger time with the record's window.
// It is advisory; no operation consults it.
func (r *Registry) IsWindowActive(usageID uint64) (bool, error) {
	terms, err := r.Terms(usageID)
	if err != nil {
		return false, err
	}
	return terms.Active(r.ledger.Now().Unix()), nil
}

func (r *Registry) URI(usageID uint64) (string, error) {
	if _, err := r.Terms(usageID); err != nil {
		return "", err
	}
	return strings.ReplaceAll(r.cfg.URI, "{id}", fmt.Sprintf("%064x", usageID)), nil
}

func (r *Registry) TotalRecords() uint64 {
	var n uint64
	r.ledger.View(func() { n = r.records.Len() })
	return n
}

func (r *Registry) OwnershipLink() account.Address {
	var a account.Address
	r.ledger.View(func() { a = r.link })
	return a
}

func (r *Registry) IsApprovedForAll(holder, operator account.Address) bool {
	var ok bool
	r.ledger.View(func() { ok = r.operators[holder][operator] })
	return ok
}
