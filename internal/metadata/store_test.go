package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/journal"
	"github.com/EternisAI/agent-registry/internal/ledger"
)

var (
	caller   = account.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	contract = account.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	sibling  = account.MustParseAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
)

func set(l *ledger.Ledger, s *Store[uint64], kind Kind, id uint64, keys, values []string, fail bool) error {
	return setAt(l, s, contract, kind, id, keys, values, fail)
}

func setAt(l *ledger.Ledger, s *Store[uint64], target account.Address, kind Kind, id uint64, keys, values []string, fail bool) error {
	call := ledger.Call{Target: target, Kind: "metadata", Caller: caller}
	return l.Execute(context.Background(), call, func(tx *ledger.Tx) error {
		if err := s.SetAll(tx, kind, id, keys, values); err != nil {
			return err
		}
		if fail {
			return errors.New("abort")
		}
		return nil
	})
}

func TestRoundTrip(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	s := NewStore[uint64]()

	require.NoError(t, set(l, s, KindOwnership, 1, []string{"tier", "businessType"}, []string{"premium", "healthcare"}, false))

	v, ok := s.Get(KindOwnership, contract, 1, "tier")
	assert.True(t, ok)
	assert.Equal(t, "premium", v)

	v, ok = s.Get(KindOwnership, contract, 1, "missing")
	assert.False(t, ok)
	assert.Empty(t, v)

	assert.Equal(t, []string{"tier", "businessType"}, s.Keys(KindOwnership, contract, 1))
}

func TestKindsAreSeparate(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	s := NewStore[uint64]()

	require.NoError(t, set(l, s, KindOwnership, 1, []string{"tier"}, []string{"premium"}, false))
	require.NoError(t, set(l, s, KindUsage, 1, []string{"tier"}, []string{"basic"}, false))

	v, _ := s.Get(KindOwnership, contract, 1, "tier")
	assert.Equal(t, "premium", v)
	v, _ = s.Get(KindUsage, contract, 1, "tier")
	assert.Equal(t, "basic", v)
}

func TestDuplicateKeyLastWriteWins(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	s := NewStore[uint64]()

	require.NoError(t, set(l, s, KindUsage, 7,
		[]string{"plan", "region", "plan"},
		[]string{"monthly", "eu", "annual"}, false))

	v, _ := s.Get(KindUsage, contract, 7, "plan")
	assert.Equal(t, "annual", v)
	assert.Equal(t, []Pair{{Key: "plan", Value: "annual"}, {Key: "region", Value: "eu"}}, s.Pairs(KindUsage, contract, 7))
}

func TestArityMismatch(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	s := NewStore[uint64]()

	err := set(l, s, KindOwnership, 1, []string{"a", "b"}, []string{"1"}, false)
	assert.ErrorIs(t, err, ErrArityMismatch)
	assert.Empty(t, s.Keys(KindOwnership, contract, 1))
}

func TestRollbackRestoresPreviousEntry(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	s := NewStore[uint64]()

	require.NoError(t, set(l, s, KindOwnership, 1, []string{"tier"}, []string{"premium"}, false))
	require.Error(t, set(l, s, KindOwnership, 1, []string{"tier", "extra"}, []string{"basic", "x"}, true))
	require.Error(t, set(l, s, KindOwnership, 2, []string{"tier"}, []string{"basic"}, true))

	v, _ := s.Get(KindOwnership, contract, 1, "tier")
	assert.Equal(t, "premium", v)
	assert.Equal(t, []string{"tier"}, s.Keys(KindOwnership, contract, 1))
	assert.Empty(t, s.Pairs(KindOwnership, contract, 2))
}

func TestContractsAreSeparate(t *testing.T) {
	l := ledger.New(journal.NewMemory())
	s := NewStore[uint64]()

	require.NoError(t, setAt(l, s, contract, KindOwnership, 1, []string{"tier"}, []string{"premium"}, false))
	require.NoError(t, setAt(l, s, sibling, KindOwnership, 1, []string{"tier"}, []string{"basic"}, false))

	v, _ := s.Get(KindOwnership, contract, 1, "tier")
	assert.Equal(t, "premium", v)
	v, _ = s.Get(KindOwnership, sibling, 1, "tier")
	assert.Equal(t, "basic", v)
	assert.Empty(t, s.Keys(KindUsage, sibling, 1))
}
