// Package ownership implements the registry of ownership records: one record
// per agent, held by exactly one owner and transferable.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/arena"
	"github.com/EternisAI/agent-registry/internal/identity"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/metadata"
)

var (
	ErrRecordNotFound        = errors.New("ownership record not found")
	ErrNotOwner              = errors.New("not the owner of the ownership record")
	ErrRegistryPaused        = errors.New("registry is paused")
	ErrNotAdmin              = errors.New("caller is not the registry administrator")
	ErrAlreadyPaused         = errors.New("registry is already paused")
	ErrNotPaused             = errors.New("registry is not paused")
	ErrInvalidHolder         = errors.New("invalid holder address")
	ErrInvalidOperator       = errors.New("invalid operator address")
	ErrInvalidLink           = errors.New("invalid link address")
	ErrLinkAlreadyConfigured = errors.New("link is already configured")
	ErrCreationRestricted    = errors.New("record creation is restricted to the administrator")

	ErrDuplicateIdentifier   = identity.ErrDuplicateIdentifier
	ErrMetadataArityMismatch = metadata.ErrArityMismatch
)

const (
	opCreate             = "ownership.create"
	opTransfer           = "ownership.transfer"
	opSetApproval        = "ownership.set_approval"
	opPause              = "ownership.pause"
	opUnpause            = "ownership.unpause"
	opSetUsageLink       = "ownership.set_usage_link"
	opReconfigureUsageLk = "ownership.reconfigure_usage_link"
)

const (
	EventCreated        = "OwnershipRecordCreated"
	EventTransfer       = "Transfer"
	EventApprovalForAll = "ApprovalForAll"
	EventPaused         = "Paused"
	EventUnpaused       = "Unpaused"
	EventUsageLinkSet   = "UsageLinkConfigured"
)

type Config struct {
	Name  string
	Admin account.Address
	// PauseBlocksTransfers makes Transfer fail while the registry is paused.
	// Creation is always blocked while paused.
	PauseBlocksTransfers bool
	// OpenCreation lets any caller create records. When false only Admin may.
	OpenCreation bool
	// Metadata is the store shared with the other registries on the ledger.
	// Nil gives the registry a store of its own.
	Metadata *metadata.Store[uint64]
}

// record is the stored form; attributes and metadata live in their stores.
type record struct {
	owner    account.Address
	identity Identity
	platform PlatformInfo
}

type Registry struct {
	address account.Address
	cfg     Config
	ledger  *ledger.Ledger

	records    *arena.Arena[*record]
	index      *identity.Index
	attributes *attributeStore
	metadata   *metadata.Store[uint64]

	balances  map[account.Address]uint64
	operators map[account.Address]map[account.Address]bool
	paused    bool
	usageLink account.Address
}

// New deploys a registry at address on l and registers its replay handlers.
func New(l *ledger.Ledger, address account.Address, cfg Config) *Registry {
	if cfg.Metadata == nil {
		cfg.Metadata = metadata.NewStore[uint64]()
	}
	r := &Registry{
		address:    address,
		cfg:        cfg,
		ledger:     l,
		records:    arena.New[*record](),
		index:      identity.NewIndex(),
		attributes: newAttributeStore(),
		metadata:   cfg.Metadata,
		balances:   make(map[account.Address]uint64),
		operators:  make(map[account.Address]map[account.Address]bool),
	}

	l.Register(address, opCreate, ledger.Decode(func(tx *ledger.Tx, in CreateInput) error {
		_, err := r.create(tx, in)
		return err
	}))
	l.Register(address, opTransfer, ledger.Decode(r.transfer))
	l.Register(address, opSetApproval, ledger.Decode(r.setApproval))
	l.Register(address, opPause, ledger.Decode(func(tx *ledger.Tx, _ struct{}) error { return r.setPaused(tx, true) }))
	l.Register(address, opUnpause, ledger.Decode(func(tx *ledger.Tx, _ struct{}) error { return r.setPaused(tx, false) }))
	l.Register(address, opSetUsageLink, ledger.Decode(func(tx *ledger.Tx, in LinkInput) error { return r.setUsageLink(tx, in, false) }))
	l.Register(address, opReconfigureUsageLk, ledger.Decode(func(tx *ledger.Tx, in LinkInput) error { return r.setUsageLink(tx, in, true) }))

	return r
}

func (r *Registry) Address() account.Address { return r.address }

func (r *Registry) Admin() account.Address { return r.cfg.Admin }

func (r *Registry) Name() string { return r.cfg.Name }

func (r *Registry) exec(ctx context.Context, kind string, caller account.Address, payload any, apply func(tx *ledger.Tx) error) error {
	return r.ledger.Execute(ctx, ledger.Call{
		Target:  r.address,
		Kind:    kind,
		Caller:  caller,
		Payload: payload,
	}, apply)
}

// Create mints a new ownership record owned by caller and returns its id.
func (r *Registry) Create(ctx context.Context, caller account.Address, in CreateInput) (uint64, error) {
	var id uint64
	err := r.exec(ctx, opCreate, caller, in, func(tx *ledger.Tx) error {
		var err error
		id, err = r.create(tx, in)
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Ownership record created",
		"contract", r.address.Hex(),
		"record_id", id,
		"agent_id", in.Identity.AgentID,
		"owner", caller.Hex(),
		"attributes", len(in.Attributes),
		"metadata", len(in.MetadataKeys))
	return id, nil
}

func (r *Registry) create(tx *ledger.Tx, in CreateInput) (uint64, error) {
	if r.paused {
		return 0, ErrRegistryPaused
	}
	if !r.cfg.OpenCreation && !tx.Replaying() && tx.Caller() != r.cfg.Admin {
		return 0, ErrCreationRestricted
	}
	if len(in.MetadataKeys) != len(in.MetadataValues) {
		return 0, fmt.Errorf("%w: %d keys, %d values", ErrMetadataArityMismatch, len(in.MetadataKeys), len(in.MetadataValues))
	}

	id := r.records.Next()
	if err := r.index.Reserve(tx, in.Identity.AgentID, id); err != nil {
		return 0, err
	}

	ident := in.Identity
	ident.CreatedAt = tx.Now().Unix()

	owner := tx.Caller()
	r.records.Append(tx, &record{
		owner:    owner,
		identity: ident,
		platform: in.PlatformInfo,
	})
	r.attributes.put(tx, id, in.Attributes)
	if err := r.metadata.SetAll(tx, metadata.KindOwnership, id, in.MetadataKeys, in.MetadataValues); err != nil {
		return 0, err
	}
	r.adjustBalance(tx, owner, 1)

	tx.Emit(EventCreated, id, map[string]string{"agent_id": ident.AgentID})
	tx.Emit(EventTransfer, id, map[string]string{"from": account.Zero.Hex(), "to": owner.Hex()})
	return id, nil
}

// Transfer moves record id from its current owner to to. The caller must be
// the owner or an operator the owner approved.
func (r *Registry) Transfer(ctx context.Context, caller account.Address, id uint64, from, to account.Address) error {
	in := TransferInput{ID: id, From: from, To: to}
	if err := r.exec(ctx, opTransfer, caller, in, func(tx *ledger.Tx) error {
		return r.transfer(tx, in)
	}); err != nil {
		return err
	}

	slog.Info("Ownership record transferred",
		"contract", r.address.Hex(),
		"record_id", id,
		"from", from.Hex(),
		"to", to.Hex())
	return nil
}

func (r *Registry) transfer(tx *ledger.Tx, in TransferInput) error {
	if r.paused && r.cfg.PauseBlocksTransfers && !tx.Replaying() {
		return ErrRegistryPaused
	}

	rec, ok := r.records.Get(in.ID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, in.ID)
	}
	if rec.owner != in.From {
		return fmt.Errorf("%w: %s does not own record %d", ErrNotOwner, in.From.Hex(), in.ID)
	}
	if caller := tx.Caller(); caller != in.From && !r.operators[in.From][caller] {
		return fmt.Errorf("%w: %s may not transfer record %d", ErrNotOwner, caller.Hex(), in.ID)
	}
	if in.To.IsZero() {
		return ErrInvalidHolder
	}

	prev := rec.owner
	rec.owner = in.To
	tx.OnRollback(func() { rec.owner = prev })
	r.adjustBalance(tx, prev, -1)
	r.adjustBalance(tx, in.To, 1)

	tx.Emit(EventTransfer, in.ID, map[string]string{"from": prev.Hex(), "to": in.To.Hex()})
	return nil
}

// SetApprovalForAll lets operator transfer every record the caller owns.
func (r *Registry) SetApprovalForAll(ctx context.Context, caller, operator account.Address, approved bool) error {
	in := ApprovalInput{Operator: operator, Approved: approved}
	return r.exec(ctx, opSetApproval, caller, in, func(tx *ledger.Tx) error {
		return r.setApproval(tx, in)
	})
}

func (r *Registry) setApproval(tx *ledger.Tx, in ApprovalInput) error {
	owner := tx.Caller()
	if in.Operator.IsZero() || in.Operator == owner {
		return ErrInvalidOperator
	}

	ops := r.operators[owner]
	if ops == nil {
		ops = make(map[account.Address]bool)
		r.operators[owner] = ops
	}
	prev, had := ops[in.Operator]
	if in.Approved {
		ops[in.Operator] = true
	} else {
		delete(ops, in.Operator)
	}
	tx.OnRollback(func() {
		if had {
			ops[in.Operator] = prev
		} else {
			delete(ops, in.Operator)
		}
	})

	tx.Emit(EventApprovalForAll, 0, map[string]string{
		"owner":    owner.Hex(),
		"operator": in.Operator.Hex(),
		"approved": fmt.Sprint(in.Approved),
	})
	return nil
}

func (r *Registry) adjustBalance(tx *ledger.Tx, holder account.Address, delta int) {
	prev := r.balances[holder]
	next := uint64(int64(prev) + int64(delta))
	if next == 0 {
		delete(r.balances, holder)
	} else {
		r.balances[holder] = next
	}
	tx.OnRollback(func() {
		if prev == 0 {
			delete(r.balances, holder)
			return
		}
		r.balances[holder] = prev
	})
}

// HolderAt reports the current owner of id from inside a running operation.
// Other registries use it to authorize callers against this one; holding a Tx
// guarantees the ledger lock is already taken.
func (r *Registry) HolderAt(_ *ledger.Tx, id uint64) (account.Address, error) {
	rec, ok := r.records.Get(id)
	if !ok {
		return account.Zero, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	return rec.owner, nil
}
