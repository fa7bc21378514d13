// Package usage implements the registry of usage records: quantity-bearing,
// time-scoped rights that each reference one ownership record.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/arena"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/metadata"
)

var (
	ErrRecordNotFound           = errors.New("usage record not found")
	ErrReferencedRecordNotFound = errors.New("referenced ownership record not found")
	ErrNotOwnershipOwner        = errors.New("caller does not own the referenced ownership record")
	ErrInvalidQuantity          = errors.New("quantity must be greater than zero")
	ErrQuantityOverflow         = errors.New("quantity overflows balance")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInvalidHolder            = errors.New("invalid holder address")
	ErrNotAuthorized            = errors.New("caller may not move this balance")
	ErrInvalidOperator          = errors.New("invalid operator address")
	ErrNotAdmin                 = errors.New("caller is not the registry administrator")
	ErrInvalidLink              = errors.New("invalid link address")
	ErrLinkAlreadyConfigured    = errors.New("ownership link is already configured")
	ErrLinkNotConfigured        = errors.New("ownership link is not configured")

	ErrMetadataArityMismatch = metadata.ErrArityMismatch
)

const (
	opConfigureLink   = "usage.configure_ownership_link"
	opReconfigureLink = "usage.reconfigure_ownership_link"
	opCreate          = "usage.create"
	opMint            = "usage.mint"
	opTransfer        = "usage.transfer"
	opSetApproval     = "usage.set_approval"
)

const (
	EventCreated        = "UsageRecordCreated"
	EventTransferSingle = "TransferSingle"
	EventApprovalForAll = "ApprovalForAll"
	EventLinkConfigured = "OwnershipLinkConfigured"
)

type Config struct {
	Name  string
	Admin account.Address
	// URI is the metadata URI template; "{id}" is replaced by the record id
	// as 64 lowercase hex digits.
	URI string
	// Metadata is shared with the ownership registries; nil means private.
	Metadata *metadata.Store[uint64]
}

type record struct {
	creator account.Address
	terms   Terms
	supply  uint64
}

type Registry struct {
	address  account.Address
	cfg      Config
	ledger   *ledger.Ledger
	resolver Resolver

	records   *arena.Arena[*record]
	metadata  *metadata.Store[uint64]
	balances  map[uint64]map[account.Address]uint64
	operators map[account.Address]map[account.Address]bool
	link      account.Address
}

// New deploys a usage registry at address. resolver locates the ownership
// registries usage records may reference.
func New(l *ledger.Ledger, address account.Address, resolver Resolver, cfg Config) *Registry {
	if cfg.Metadata == nil {
		cfg.Metadata = metadata.NewStore[uint64]()
	}
	r := &Registry{
		address:   address,
		cfg:       cfg,
		ledger:    l,
		resolver:  resolver,
		records:   arena.New[*record](),
		metadata:  cfg.Metadata,
		balances:  make(map[uint64]map[account.Address]uint64),
		operators: make(map[account.Address]map[account.Address]bool),
	}

	l.Register(address, opConfigureLink, ledger.Decode(func(tx *ledger.Tx, in LinkInput) error { return r.setLink(tx, in, false) }))
	l.Register(address, opReconfigureLink, ledger.Decode(func(tx *ledger.Tx, in LinkInput) error { return r.setLink(tx, in, true) }))
	l.Register(address, opCreate, ledger.Decode(func(tx *ledger.Tx, in CreateInput) error {
		_, err := r.create(tx, in)
		return err
	}))
	l.Register(address, opMint, ledger.Decode(r.mint))
	l.Register(address, opTransfer, ledger.Decode(r.transfer))
	l.Register(address, opSetApproval, ledger.Decode(r.setApproval))

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

// ConfigureOwnershipLink sets the default ownership registry. It can be set
// once; ReconfigureOwnershipLink re-points it.
func (r *Registry) ConfigureOwnershipLink(ctx context.Context, caller, addr account.Address) error {
	return r.configureLink(ctx, opConfigureLink, caller, addr, false)
}

func (r *Registry) ReconfigureOwnershipLink(ctx context.Context, caller, addr account.Address) error {
	return r.configureLink(ctx, opReconfigureLink, caller, addr, true)
}

func (r *Registry) configureLink(ctx context.Context, kind string, caller, addr account.Address, reconfigure bool) error {
	in := LinkInput{Address: addr}
	if err := r.exec(ctx, kind, caller, in, func(tx *ledger.Tx) error {
		return r.setLink(tx, in, reconfigure)
	}); err != nil {
		return err
	}

	slog.Info("Ownership link configured", "contract", r.address.Hex(), "ownership_contract", addr.Hex())
	return nil
}

func (r *Registry) setLink(tx *ledger.Tx, in LinkInput, reconfigure bool) error {
	if !tx.Replaying() && tx.Caller() != r.cfg.Admin {
		return ErrNotAdmin
	}
	if in.Address.IsZero() {
		return ErrInvalidLink
	}
	if !reconfigure && !r.link.IsZero() {
		return ErrLinkAlreadyConfigured
	}

	prev := r.link
	r.link = in.Address
	tx.OnRollback(func() { r.link = prev })

	tx.Emit(EventLinkConfigured, 0, map[string]string{
		"previous":  prev.Hex(),
		"ownership": in.Address.Hex(),
	})
	return nil
}

// Create mints a new usage record against an ownership record the caller
// currently owns, crediting quantity to recipient.
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

	slog.Info("Usage record created",
		"contract", r.address.Hex(),
		"usage_id", id,
		"ownership_id", in.OwnershipID,
		"creator", caller.Hex(),
		"recipient", in.Recipient.Hex(),
		"quantity", in.Quantity)
	return id, nil
}

func (r *Registry) create(tx *ledger.Tx, in CreateInput) (uint64, error) {
	if in.Quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	if in.Recipient.IsZero() {
		return 0, ErrInvalidHolder
	}
	if len(in.MetadataKeys) != len(in.MetadataValues) {
		return 0, fmt.Errorf("%w: %d keys, %d values", ErrMetadataArityMismatch, len(in.MetadataKeys), len(in.MetadataValues))
	}

	contract := in.OwnershipContract
	if contract.IsZero() {
		if r.link.IsZero() {
			return 0, ErrLinkNotConfigured
		}
		contract = r.link
	}
	if err := r.authorizeOwner(tx, contract, in.OwnershipID); err != nil {
		return 0, err
	}

	terms := in.Terms
	terms.OwnershipTokenID = in.OwnershipID
	terms.OwnershipContract = contract

	rec := &record{creator: tx.Caller(), terms: terms}
	id := r.records.Append(tx, rec)
	if err := r.metadata.SetAll(tx, metadata.KindUsage, id, in.MetadataKeys, in.MetadataValues); err != nil {
		return 0, err
	}
	if err := r.credit(tx, id, rec, in.Recipient, in.Quantity); err != nil {
		return 0, err
	}

	tx.Emit(EventCreated, id, map[string]string{
		"ownership_id":       strconv.FormatUint(in.OwnershipID, 10),
		"ownership_contract": contract.Hex(),
	})
	r.emitTransfer(tx, id, account.Zero, in.Recipient, in.Quantity)
	return id, nil
}

// authorizeOwner checks that the caller currently holds ownership record id at
// contract.
func (r *Registry) authorizeOwner(tx *ledger.Tx, contract account.Address, id uint64) error {
	src, ok := r.resolver.Resolve(contract)
	if !ok {
		return fmt.Errorf("%w: no ownership registry at %s", ErrReferencedRecordNotFound, contract.Hex())
	}
	holder, err := src.HolderAt(tx, id)
	if err != nil {
		return fmt.Errorf("%w: record %d at %s: %w", ErrReferencedRecordNotFound, id, contract.Hex(), err)
	}
	if holder != tx.Caller() {
		return fmt.Errorf("%w: record %d at %s", ErrNotOwnershipOwner, id, contract.Hex())
	}
	return nil
}

// MintAdditional credits more quantity of an existing usage record. Terms are
// unchanged and the caller must own the referenced ownership record now.
func (r *Registry) MintAdditional(ctx context.Context, caller account.Address, usageID uint64, recipient account.Address, quantity uint64) error {
	in := MintInput{UsageID: usageID, Recipient: recipient, Quantity: quantity}
	if err := r.exec(ctx, opMint, caller, in, func(tx *ledger.Tx) error {
		return r.mint(tx, in)
	}); err != nil {
		return err
	}

	slog.Info("Usage record minted",
		"contract", r.address.Hex(),
		"usage_id", usageID,
		"recipient", recipient.Hex(),
		"quantity", quantity)
	return nil
}

func (r *Registry) mint(tx *ledger.Tx, in MintInput) error {
	if in.Quantity == 0 {
		return ErrInvalidQuantity
	}
	if in.Recipient.IsZero() {
		return ErrInvalidHolder
	}
	rec, err := r.lookup(in.UsageID)
	if err != nil {
		return err
	}
	if err := r.authorizeOwner(tx, rec.terms.OwnershipContract, rec.terms.OwnershipTokenID); err != nil {
		return err
	}
	if err := r.credit(tx, in.UsageID, rec, in.Recipient, in.Quantity); err != nil {
		return err
	}

	r.emitTransfer(tx, in.UsageID, account.Zero, in.Recipient, in.Quantity)
	return nil
}

// TransferQuantity moves quantity of usageID from one holder to another. The
// validity window does not gate transfers.
func (r *Registry) TransferQuantity(ctx context.Context, caller account.Address, usageID uint64, from, to account.Address, quantity uint64) error {
	in := TransferInput{UsageID: usageID, From: from, To: to, Quantity: quantity}
	if err := r.exec(ctx, opTransfer, caller, in, func(tx *ledger.Tx) error {
		return r.transfer(tx, in)
	}); err != nil {
		return err
	}

	slog.Debug("Usage quantity transferred",
		"contract", r.address.Hex(),
		"usage_id", usageID,
		"from", from.Hex(),
		"to", to.Hex(),
		"quantity", quantity)
	return nil
}

func (r *Registry) transfer(tx *ledger.Tx, in TransferInput) error {
	if in.Quantity == 0 {
		return ErrInvalidQuantity
	}
	if in.To.IsZero() {
		return ErrInvalidHolder
	}
	if _, err := r.lookup(in.UsageID); err != nil {
		return err
	}
	if caller := tx.Caller(); caller != in.From && !r.operators[in.From][caller] {
		return fmt.Errorf("%w: %s for %s", ErrNotAuthorized, caller.Hex(), in.From.Hex())
	}

	have := r.balances[in.UsageID][in.From]
	if have < in.Quantity {
		return fmt.Errorf("%w: %s holds %d of %d, needs %d", ErrInsufficientBalance, in.From.Hex(), have, in.UsageID, in.Quantity)
	}
	if in.From != in.To {
		if r.balances[in.UsageID][in.To] > math.MaxUint64-in.Quantity {
			return ErrQuantityOverflow
		}
		r.setBalance(tx, in.UsageID, in.From, have-in.Quantity)
		r.setBalance(tx, in.UsageID, in.To, r.balances[in.UsageID][in.To]+in.Quantity)
	}

	r.emitTransfer(tx, in.UsageID, in.From, in.To, in.Quantity)
	return nil
}

// SetApprovalForAll lets operator move every balance the caller holds.
func (r *Registry) SetApprovalForAll(ctx context.Context, caller, operator account.Address, approved bool) error {
	in := ApprovalInput{Operator: operator, Approved: approved}
	return r.exec(ctx, opSetApproval, caller, in, func(tx *ledger.Tx) error {
		return r.setApproval(tx, in)
	})
}

func (r *Registry) setApproval(tx *ledger.Tx, in ApprovalInput) error {
	holder := tx.Caller()
	if in.Operator.IsZero() || in.Operator == holder {
		return ErrInvalidOperator
	}

	ops := r.operators[holder]
	if ops == nil {
		ops = make(map[account.Address]bool)
		r.operators[holder] = ops
	}
	_, had := ops[in.Operator]
	if in.Approved {
		ops[in.Operator] = true
	} else {
		delete(ops, in.Operator)
	}
	tx.OnRollback(func() {
		if had {
			ops[in.Operator] = true
		} else {
			delete(ops, in.Operator)
		}
	})

	tx.Emit(EventApprovalForAll, 0, map[string]string{
		"owner":    holder.Hex(),
		"operator": in.Operator.Hex(),
		"approved": strconv.FormatBool(in.Approved),
	})
	return nil
}

func (r *Registry) credit(tx *ledger.Tx, id uint64, rec *record, to account.Address, quantity uint64) error {
	have := r.balances[id][to]
	if have > math.MaxUint64-quantity || rec.supply > math.MaxUint64-quantity {
		return ErrQuantityOverflow
	}
	r.setBalance(tx, id, to, have+quantity)

	prev := rec.supply
	rec.supply += quantity
	tx.OnRollback(func() { rec.supply = prev })
	return nil
}

func (r *Registry) setBalance(tx *ledger.Tx, id uint64, holder account.Address, amount uint64) {
	holders := r.balances[id]
	if holders == nil {
		holders = make(map[account.Address]uint64)
		r.balances[id] = holders
	}
	prev, had := holders[holder]
	if amount == 0 {
		delete(holders, holder)
	} else {
		holders[holder] = amount
	}
	tx.OnRollback(func() {
		if had {
			holders[holder] = prev
		} else {
			delete(holders, holder)
		}
	})
}

func (r *Registry) emitTransfer(tx *ledger.Tx, id uint64, from, to account.Address, quantity uint64) {
	tx.Emit(EventTransferSingle, id, map[string]string{
		"operator": tx.Caller().Hex(),
		"from":     from.Hex(),
		"to":       to.Hex(),
		"value":    strconv.FormatUint(quantity, 10),
	})
}

// lookup must be called with the ledger lock held, shared or exclusive.
func (r *Registry) lookup(id uint64) (*record, error) {
	rec, ok := r.records.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	return rec, nil
}
