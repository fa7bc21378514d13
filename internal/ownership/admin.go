package ownership

import (
	"context"
	"log/slog"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/ledger"
)

// Pause stops record creation (and transfers, when configured) until Unpause.
func (r *Registry) Pause(ctx context.Context, caller account.Address) error {
	if err := r.exec(ctx, opPause, caller, struct{}{}, func(tx *ledger.Tx) error {
		return r.setPaused(tx, true)
	}); err != nil {
		return err
	}

	slog.Warn("Ownership registry paused", "contract", r.address.Hex(), "admin", caller.Hex())
	return nil
}

func (r *Registry) Unpause(ctx context.Context, caller account.Address) error {
	if err := r.exec(ctx, opUnpause, caller, struct{}{}, func(tx *ledger.Tx) error {
		return r.setPaused(tx, false)
	}); err != nil {
		return err
	}

	slog.Info("Ownership registry unpaused", "contract", r.address.Hex(), "admin", caller.Hex())
	return nil
}

func (r *Registry) setPaused(tx *ledger.Tx, paused bool) error {
	if !tx.Replaying() && tx.Caller() != r.cfg.Admin {
		return ErrNotAdmin
	}
	if paused && r.paused {
		return ErrAlreadyPaused
	}
	if !paused && !r.paused {
		return ErrNotPaused
	}

	r.paused = paused
	tx.OnRollback(func() { r.paused = !paused })

	name := EventUnpaused
	if paused {
		name = EventPaused
	}
	tx.Emit(name, 0, map[string]string{"account": tx.Caller().Hex()})
	return nil
}

// SetUsageLink records the usage registry paired with this one. It can be set
// once; ReconfigureUsageLink re-points it.
func (r *Registry) SetUsageLink(ctx context.Context, caller, addr account.Address) error {
	return r.linkUsage(ctx, opSetUsageLink, caller, addr, false)
}

func (r *Registry) ReconfigureUsageLink(ctx context.Context, caller, addr account.Address) error {
	return r.linkUsage(ctx, opReconfigureUsageLk, caller, addr, true)
}

func (r *Registry) linkUsage(ctx context.Context, kind string, caller, addr account.Address, reconfigure bool) error {
	in := LinkInput{Address: addr}
	if err := r.exec(ctx, kind, caller, in, func(tx *ledger.Tx) error {
		return r.setUsageLink(tx, in, reconfigure)
	}); err != nil {
		return err
	}

	slog.Info("Usage link configured", "contract", r.address.Hex(), "usage_contract", addr.Hex())
	return nil
}

func (r *Registry) setUsageLink(tx *ledger.Tx, in LinkInput, reconfigure bool) error {
	if !tx.Replaying() && tx.Caller() != r.cfg.Admin {
		return ErrNotAdmin
	}
	if in.Address.IsZero() {
		return ErrInvalidLink
	}
	if !reconfigure && !r.usageLink.IsZero() {
		return ErrLinkAlreadyConfigured
	}

	prev := r.usageLink
	r.usageLink = in.Address
	tx.OnRollback(func() { r.usageLink = prev })

	tx.Emit(EventUsageLinkSet, 0, map[string]string{
		"previous": prev.Hex(),
		"usage":    in.Address.Hex(),
	})
	return nil
}
