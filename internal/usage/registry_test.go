package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/journal"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/ownership"
)

var (
	admin      = account.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	creator    = account.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	other      = account.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	recipientX = account.MustParseAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	now        = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	ledger    *ledger.Ledger
	journal   *journal.Memory
	ownership *ownership.Registry
	usage     *Registry
}

func directoryResolver(regs ...*ownership.Registry) Resolver {
	return ResolverFunc(func(addr account.Address) (OwnershipSource, bool) {
		for _, r := range regs {
			if r.Address() == addr {
				return r, true
			}
		}
		return nil, false
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	j := journal.NewMemory()
	l := ledger.New(j, ledger.WithClock(ledger.ClockFunc(func() time.Time { return now })))
	own := ownership.New(l, account.ContractAddress(admin, "ownership"), ownership.Config{
		Admin:        admin,
		OpenCreation: true,
	})
	use := New(l, account.ContractAddress(admin, "usage"), directoryResolver(own), Config{
		Admin: admin,
		URI:   "https://registry.example/usage/{id}.json",
	})
	require.NoError(t, use.ConfigureOwnershipLink(context.Background(), admin, own.Address()))
	return &fixture{ledger: l, journal: j, ownership: own, usage: use}
}

func (f *fixture) mintAgent(t *testing.T, owner account.Address, agentID string) uint64 {
	t.Helper()
	id, err := f.ownership.Create(context.Background(), owner, ownership.CreateInput{
		Identity: ownership.Identity{AgentID: agentID, Name: agentID},
		Attributes: []ownership.Attribute{
			{Category: 1, AttributeType: "model", AttributeValue: "llama", IsActive: true},
			{Category: 2, AttributeType: "tool", AttributeValue: "search", IsActive: true},
		},
	})
	require.NoError(t, err)
	return id
}

func grant(ownershipID uint64, recipient account.Address, quantity uint64) CreateInput {
	return CreateInput{
		OwnershipID: ownershipID,
		Terms: Terms{
			FromTimestamp: now.Add(-time.Hour).Unix(),
			ToTimestamp:   now.Add(time.Hour).Unix(),
			AttributeKey:  ownership.AttributeKey(0, "model"),
		},
		Recipient: recipient,
		Quantity:  quantity,
	}
}

func TestConcreteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.mintAgent(t, creator, "agent-1")
	require.Equal(t, uint64(1), id)

	owner, err := f.ownership.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, creator, owner)
	attrs, err := f.ownership.Attributes(1)
	require.NoError(t, err)
	assert.Len(t, attrs, 2)

	in := grant(1, recipientX, 1)
	in.OwnershipContract = f.ownership.Address()
	usageID, err := f.usage.Create(ctx, creator, in)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), usageID)
	assert.Equal(t, uint64(1), f.usage.BalanceOf(recipientX, 1))

	refID, refContract, err := f.usage.OwnershipReference(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), refID)
	assert.Equal(t, f.ownership.Address(), refContract)

	_, err = f.usage.Create(ctx, other, in)
	assert.ErrorIs(t, err, ErrNotOwnershipOwner)
	assert.Equal(t, uint64(1), f.usage.TotalRecords())
}

func TestCreateOverwritesSpoofedReference(t *testing.T) {
	f := newFixture(t)
	id := f.mintAgent(t, creator, "agent-1")

	in := grant(id, recipientX, 3)
	in.Terms.OwnershipContract = account.Zero
	in.Terms.OwnershipTokenID = 999
	usageID, err := f.usage.Create(context.Background(), creator, in)
	require.NoError(t, err)

	terms, err := f.usage.Terms(usageID)
	require.NoError(t, err)
	assert.Equal(t, id, terms.OwnershipTokenID)
	assert.Equal(t, f.ownership.Address(), terms.OwnershipContract)
	assert.Equal(t, "0_model", terms.AttributeKey)
}

func TestCreateRequiresOwnerOfReferencedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mintAgent(t, creator, "agent-1")
	otherID := f.mintAgent(t, other, "agent-2")
	require.Equal(t, uint64(2), otherID)

	// other owns record 2, not record 1
	_, err := f.usage.Create(ctx, other, grant(1, recipientX, 1))
	assert.ErrorIs(t, err, ErrNotOwnershipOwner)

	_, err = f.usage.Create(ctx, other, grant(2, recipientX, 1))
	assert.NoError(t, err)
}

func TestCreateFollowsOwnershipTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintAgent(t, creator, "agent-1")

	require.NoError(t, f.ownership.Transfer(ctx, creator, id, creator, other))

	_, err := f.usage.Create(ctx, creator, grant(id, recipientX, 1))
	assert.ErrorIs(t, err, ErrNotOwnershipOwner)
	_, err = f.usage.Create(ctx, other, grant(id, recipientX, 1))
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintAgent(t, creator, "agent-1")

	_, err := f.usage.Create(ctx, creator, grant(42, recipientX, 1))
	assert.ErrorIs(t, err, ErrReferencedRecordNotFound)

	in := grant(id, recipientX, 1)
	in.OwnershipContract = account.ContractAddress(admin, "elsewhere")
	_, err = f.usage.Create(ctx, creator, in)
	assert.ErrorIs(t, err, ErrReferencedRecordNotFound)

	_, err = f.usage.Create(ctx, creator, grant(id, recipientX, 0))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.usage.Create(ctx, creator, grant(id, account.Zero, 1))
	assert.ErrorIs(t, err, ErrInvalidHolder)

	in = grant(id, recipientX, 1)
	in.MetadataKeys = []string{"tier"}
	_, err = f.usage.Create(ctx, creator, in)
	assert.ErrorIs(t, err, ErrMetadataArityMismatch)

	assert.Equal(t, uint64(0), f.usage.TotalRecords())
}

func TestCreateWithoutLink(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	own := ownership.New(l, account.ContractAddress(admin, "ownership"), ownership.Config{Admin: admin, OpenCreation: true})
	use := New(l, account.ContractAddress(admin, "usage"), directoryResolver(own), Config{Admin: admin})

	id, err := own.Create(context.Background(), creator, ownership.CreateInput{Identity: ownership.Identity{AgentID: "a"}})
	require.NoError(t, err)

	_, err = use.Create(context.Background(), creator, grant(id, recipientX, 1))
	assert.ErrorIs(t, err, ErrLinkNotConfigured)

	in := grant(id, recipientX, 1)
	in.OwnershipContract = own.Address()
	_, err = use.Create(context.Background(), creator, in)
	assert.NoError(t, err)
}

func TestOwnershipLinkConfiguration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	next := account.ContractAddress(admin, "ownership-2")

	assert.ErrorIs(t, f.usage.ConfigureOwnershipLink(ctx, admin, next), ErrLinkAlreadyConfigured)
	assert.ErrorIs(t, f.usage.ReconfigureOwnershipLink(ctx, creator, next), ErrNotAdmin)
	assert.ErrorIs(t, f.usage.ReconfigureOwnershipLink(ctx, admin, account.Zero), ErrInvalidLink)

	require.NoError(t, f.usage.ReconfigureOwnershipLink(ctx, admin, next))
	assert.Equal(t, next, f.usage.OwnershipLink())
}

func TestExpiredWindowIsAdmissible(t *testing.T) {
	f := newFixture(t)
	id := f.mintAgent(t, creator, "agent-1")

	in := grant(id, recipientX, 1)
	in.Terms.FromTimestamp = now.Add(-48 * time.Hour).Unix()
	in.Terms.ToTimestamp = now.Add(-24 * time.Hour).Unix()
	usageID, err := f.usage.Create(context.Background(), creator, in)
	require.NoError(t, err)

	active, err := f.usage.IsWindowActive(usageID)
	require.NoError(t, err)
	assert.False(t, active)

	// inactive records still move
	require.NoError(t, f.usage.TransferQuantity(context.Background(), recipientX, usageID, recipientX, other, 1))
	assert.Equal(t, uint64(1), f.usage.BalanceOf(other, usageID))
}

func TestWindowBoundsAreInclusive(t *testing.T) {
	at := now.Unix()
	assert.True(t, Terms{FromTimestamp: at, ToTimestamp: at}.Active(at))
	assert.False(t, Terms{FromTimestamp: at + 1, ToTimestamp: at + 5}.Active(at))
	assert.False(t, Terms{FromTimestamp: at - 5, ToTimestamp: at - 1}.Active(at))
	assert.False(t, Terms{FromTimestamp: at + 5, ToTimestamp: at - 5}.Active(at))
}

func TestMetadataRoundTrip(t *testing.T) {
	f := newFixture(t)
	id := f.mintAgent(t, creator, "agent-1")

	in := grant(id, recipientX, 1)
	in.MetadataKeys = []string{"tier"}
	in.MetadataValues = []string{"premium"}
	usageID, err := f.usage.Create(context.Background(), creator, in)
	require.NoError(t, err)

	v, ok, err := f.usage.Metadata(usageID, "tier")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "premium", v)

	v, ok, err = f.usage.Metadata(usageID, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	_, _, err = f.usage.Metadata(7, "tier")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTransferQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintAgent(t, creator, "agent-1")
	usageID, err := f.usage.Create(ctx, creator, grant(id, recipientX, 5))
	require.NoError(t, err)

	err = f.usage.TransferQuantity(ctx, recipientX, usageID, recipientX, other, 6)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	err = f.usage.TransferQuantity(ctx, other, usageID, recipientX, other, 1)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	err = f.usage.TransferQuantity(ctx, recipientX, usageID, recipientX, other, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = f.usage.TransferQuantity(ctx, recipientX, 99, recipientX, other, 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, f.usage.TransferQuantity(ctx, recipientX, usageID, recipientX, other, 2))
	assert.Equal(t, uint64(3), f.usage.BalanceOf(recipientX, usageID))
	assert.Equal(t, uint64(2), f.usage.BalanceOf(other, usageID))

	require.NoError(t, f.usage.SetApprovalForAll(ctx, recipientX, creator, true))
	require.NoError(t, f.usage.TransferQuantity(ctx, creator, usageID, recipientX, other, 3))
	assert.Equal(t, uint64(0), f.usage.BalanceOf(recipientX, usageID))
	assert.Equal(t, uint64(5), f.usage.BalanceOf(other, usageID))

	supply, err := f.usage.TotalSupply(usageID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), supply)
}

func TestMintAdditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintAgent(t, creator, "agent-1")
	usageID, err := f.usage.Create(ctx, creator, grant(id, recipientX, 1))
	require.NoError(t, err)

	assert.ErrorIs(t, f.usage.MintAdditional(ctx, other, usageID, other, 1), ErrNotOwnershipOwner)
	assert.ErrorIs(t, f.usage.MintAdditional(ctx, creator, 5, other, 1), ErrRecordNotFound)

	require.NoError(t, f.usage.MintAdditional(ctx, creator, usageID, other, 4))
	assert.Equal(t, uint64(4), f.usage.BalanceOf(other, usageID))
	assert.Equal(t, uint64(1), f.usage.TotalRecords())

	supply, err := f.usage.TotalSupply(usageID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), supply)
}

func TestURI(t *testing.T) {
	f := newFixture(t)
	id := f.mintAgent(t, creator, "agent-1")
	usageID, err := f.usage.Create(context.Background(), creator, grant(id, recipientX, 1))
	require.NoError(t, err)

	uri, err := f.usage.URI(usageID)
	require.NoError(t, err)
	assert.Equal(t, "https://registry.example/usage/0000000000000000000000000000000000000000000000000000000000000001.json", uri)
}

func TestReplayRebuildsBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintAgent(t, creator, "agent-1")
	usageID, err := f.usage.Create(ctx, creator, grant(id, recipientX, 4))
	require.NoError(t, err)
	require.NoError(t, f.usage.TransferQuantity(ctx, recipientX, usageID, recipientX, other, 1))
	require.NoError(t, f.usage.MintAdditional(ctx, creator, usageID, other, 2))

	l := ledger.New(f.journal)
	own := ownership.New(l, f.ownership.Address(), ownership.Config{Admin: admin, OpenCreation: true})
	use := New(l, f.usage.Address(), directoryResolver(own), Config{Admin: admin})
	_, err = l.Replay(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), use.BalanceOf(recipientX, usageID))
	assert.Equal(t, uint64(3), use.BalanceOf(other, usageID))
	want, _ := f.usage.Record(usageID)
	got, err := use.Record(usageID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, f.ownership.Address(), use.OwnershipLink())
}

func TestReplayUnderDifferentAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l := ledger.New(f.journal)
	own := ownership.New(l, f.ownership.Address(), ownership.Config{Admin: other, OpenCreation: true})
	use := New(l, f.usage.Address(), directoryResolver(own), Config{Admin: other})
	_, err := l.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.ownership.Address(), use.OwnershipLink())

	err = use.ReconfigureOwnershipLink(ctx, admin, own.Address())
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestTransferUnknownRecordBeforeAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.usage.TransferQuantity(ctx, other, 99, creator, recipientX, 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	id := f.mintAgent(t, creator, "agent-1")
	usageID, err := f.usage.Create(ctx, creator, grant(id, creator, 2))
	require.NoError(t, err)
	err = f.usage.TransferQuantity(ctx, other, usageID, creator, recipientX, 1)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestQuantityConservation(t *testing.T) {
	holders := []account.Address{creator, other, recipientX, admin}

	rapid.Check(t, func(t *rapid.T) {
		l := ledger.New(journal.NewMemory())
		own := ownership.New(l, account.ContractAddress(admin, "ownership"), ownership.Config{Admin: admin, OpenCreation: true})
		use := New(l, account.ContractAddress(admin, "usage"), directoryResolver(own), Config{Admin: admin})
		ctx := context.Background()

		id, err := own.Create(ctx, creator, ownership.CreateInput{Identity: ownership.Identity{AgentID: "agent"}})
		if err != nil {
			t.Fatal(err)
		}
		in := grant(id, creator, rapid.Uint64Range(1, 1000).Draw(t, "initial"))
		in.OwnershipContract = own.Address()
		usageID, err := use.Create(ctx, creator, in)
		if err != nil {
			t.Fatal(err)
		}
		minted := in.Quantity

		sum := func() uint64 {
			var total uint64
			for _, h := range holders {
				total += use.BalanceOf(h, usageID)
			}
			return total
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			from := rapid.SampledFrom(holders).Draw(t, "from")
			to := rapid.SampledFrom(holders).Draw(t, "to")
			q := rapid.Uint64Range(0, 300).Draw(t, "quantity")

			if rapid.Bool().Draw(t, "mint") {
				if err := use.MintAdditional(ctx, creator, usageID, to, q); err == nil {
					minted += q
				}
			} else {
				beforeFrom, beforeTo := use.BalanceOf(from, usageID), use.BalanceOf(to, usageID)
				err := use.TransferQuantity(ctx, from, usageID, from, to, q)
				switch {
				case err != nil:
					if use.BalanceOf(from, usageID) != beforeFrom || use.BalanceOf(to, usageID) != beforeTo {
						t.Fatalf("failed transfer changed balances")
					}
				case from != to:
					if use.BalanceOf(from, usageID) != beforeFrom-q || use.BalanceOf(to, usageID) != beforeTo+q {
						t.Fatalf("transfer of %d moved wrong amounts", q)
					}
				}
			}

			if got := sum(); got != minted {
				t.Fatalf("sum of balances %d, minted %d", got, minted)
			}
			supply, _ := use.TotalSupply(usageID)
			if supply != minted {
				t.Fatalf("total supply %d, minted %d", supply, minted)
			}
		}
	})
}
