// Package app deploys the configured registries on a ledger and brings their
// state up to date from the journal.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/events"
	"github.com/EternisAI/agent-registry/internal/journal"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/metadata"
	"github.com/EternisAI/agent-registry/internal/ownership"
	"github.com/EternisAI/agent-registry/internal/usage"
)

var ErrNoRegistries = errors.New("no ownership registry configured")

type App struct {
	Ledger    *ledger.Ledger
	Feed      *events.Feed
	Deployer  account.Address
	Ownership *ledger.Directory[*ownership.Registry]
	Usage     *ledger.Directory[*usage.Registry]
}

// New deploys every configured registry on a ledger backed by j and replays
// the journal. Links between paired instances that are not configured yet are
// set by the deployer.
func New(ctx context.Context, j journal.Journal, lcfg LedgerConfig, rcfg RegistryConfig, opts ...ledger.Option) (*App, error) {
	if len(rcfg.Ownership) == 0 {
		return nil, ErrNoRegistries
	}
	deployer, err := rcfg.DeployerAddress()
	if err != nil {
		return nil, err
	}

	a := &App{
		Ledger:    ledger.New(j, opts...),
		Feed:      events.NewFeed(lcfg.FeedSize),
		Deployer:  deployer,
		Ownership: ledger.NewDirectory[*ownership.Registry](),
		Usage:     ledger.NewDirectory[*usage.Registry](),
	}
	a.Feed.Attach(a.Ledger)
	meta := metadata.NewStore[uint64]()

	for _, name := range rcfg.Ownership {
		reg := ownership.New(a.Ledger, OwnershipAddress(deployer, name), ownership.Config{
			Name:                 name,
			Admin:                deployer,
			PauseBlocksTransfers: rcfg.PauseBlocksTransfers,
			OpenCreation:         rcfg.OpenCreation,
			Metadata:             meta,
		})
		if err := a.Ownership.Add(reg); err != nil {
			return nil, fmt.Errorf("deploy ownership registry %q: %w", name, err)
		}
	}

	resolver := usage.ResolverFunc(func(addr account.Address) (usage.OwnershipSource, bool) {
		reg, ok := a.Ownership.Lookup(addr)
		if !ok {
			return nil, false
		}
		return reg, true
	})
	for _, name := range rcfg.Usage {
		reg := usage.New(a.Ledger, UsageAddress(deployer, name), resolver, usage.Config{
			Name:     name,
			Admin:    deployer,
			URI:      rcfg.UsageURI,
			Metadata: meta,
		})
		if err := a.Usage.Add(reg); err != nil {
			return nil, fmt.Errorf("deploy usage registry %q: %w", name, err)
		}
	}

	n, err := a.Ledger.Replay(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}

	if err := a.link(ctx); err != nil {
		return nil, err
	}

	slog.Info("Registries deployed",
		"deployer", deployer.Hex(),
		"ownership", len(rcfg.Ownership),
		"usage", len(rcfg.Usage),
		"replayed", n)
	return a, nil
}

func (a *App) link(ctx context.Context) error {
	owners := a.Ownership.All()
	for i, use := range a.Usage.All() {
		if i >= len(owners) {
			break
		}
		own := owners[i]

		if use.OwnershipLink().IsZero() {
			if err := use.ConfigureOwnershipLink(ctx, a.Deployer, own.Address()); err != nil {
				return fmt.Errorf("link usage %s to ownership %s: %w", use.Name(), own.Name(), err)
			}
		}
		if own.UsageLink().IsZero() {
			if err := own.SetUsageLink(ctx, a.Deployer, use.Address()); err != nil {
				return fmt.Errorf("link ownership %s to usage %s: %w", own.Name(), use.Name(), err)
			}
		}
	}
	return nil
}

// DefaultOwnership is the first configured ownership registry.
func (a *App) DefaultOwnership() *ownership.Registry {
	return a.Ownership.All()[0]
}

// DefaultUsage is the first configured usage registry, nil if none.
func (a *App) DefaultUsage() *usage.Registry {
	all := a.Usage.All()
	if len(all) == 0 {
		return nil
	}
	return all[0]
}
