package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/agent-registry/internal/account"
)

var (
	target = account.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	caller = account.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func entry(seq uint64, kind string) Entry {
	return Entry{
		Seq:     seq,
		ID:      uuid.New(),
		Target:  target,
		Kind:    kind,
		Caller:  caller,
		At:      time.Date(2025, 6, 1, 12, 0, int(seq), 0, time.UTC),
		Payload: json.RawMessage(`{"agent_id":"agent-1"}`),
	}
}

func exerciseJournal(t *testing.T, j Journal) {
	ctx := context.Background()

	entries, err := j.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := entry(1, "ownership.create")
	second := entry(2, "ownership.transfer")
	require.NoError(t, j.Append(ctx, first))
	require.NoError(t, j.Append(ctx, second))

	err = j.Append(ctx, entry(2, "ownership.pause"))
	assert.ErrorIs(t, err, ErrSequenceConflict)

	entries, err = j.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, first.Seq, entries[0].Seq)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, first.Target, entries[0].Target)
	assert.Equal(t, first.Caller, entries[0].Caller)
	assert.Equal(t, "ownership.create", entries[0].Kind)
	assert.True(t, first.At.Equal(entries[0].At))
	assert.JSONEq(t, string(first.Payload), string(entries[0].Payload))
	assert.Equal(t, "ownership.transfer", entries[1].Kind)
}

func TestMemoryJournal(t *testing.T) {
	exerciseJournal(t, NewMemory())
}

func TestMemoryJournalRejectsGap(t *testing.T) {
	j := NewMemory()
	err := j.Append(context.Background(), entry(3, "ownership.create"))
	assert.ErrorIs(t, err, ErrSequenceConflict)
}

func TestSQLiteJournal(t *testing.T) {
	j, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	defer j.Close()

	exerciseJournal(t, j)
}

func TestSQLiteJournalSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	j, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, entry(1, "usage.create")))
	require.NoError(t, j.Close())

	reopened, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "usage.create", entries[0].Kind)
}
