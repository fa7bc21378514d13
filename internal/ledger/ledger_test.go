package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/journal"
)

var (
	contract = account.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	alice    = account.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

var errRejected = errors.New("rejected")

type failingJournal struct {
	journal.Memory
	fail bool
}

func (f *failingJournal) Append(ctx context.Context, e journal.Entry) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Append(ctx, e)
}

// counter is a toy state machine used to exercise the ledger.
type counter struct {
	value int
}

type addPayload struct {
	N int `json:"n"`
}

func (c *counter) add(tx *Tx, n int) error {
	if n < 0 {
		return errRejected
	}
	c.value += n
	tx.OnRollback(func() { c.value -= n })
	tx.Emit("Added", uint64(c.value), map[string]string{"n": "x"})
	return nil
}

func (c *counter) register(l *Ledger) {
	l.Register(contract, "counter.add", func(tx *Tx, raw json.RawMessage) error {
		var p addPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return c.add(tx, p.N)
	})
}

func submit(l *Ledger, c *counter, n int) error {
	return l.Execute(context.Background(), Call{
		Target:  contract,
		Kind:    "counter.add",
		Caller:  alice,
		Payload: addPayload{N: n},
	}, func(tx *Tx) error {
		return c.add(tx, n)
	})
}

func TestExecuteCommits(t *testing.T) {
	j := journal.NewMemory()
	l := New(j)
	c := &counter{}

	var events []Event
	l.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, submit(l, c, 3))
	require.NoError(t, submit(l, c, 4))

	assert.Equal(t, 7, c.value)
	assert.Equal(t, uint64(2), l.Seq())

	entries, err := j.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, alice, entries[0].Caller)
	assert.JSONEq(t, `{"n":3}`, string(entries[0].Payload))

	require.Len(t, events, 2)
	assert.Equal(t, "Added", events[0].Name)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, contract, events[0].Contract)
	assert.Equal(t, alice, events[0].Caller)
}

func TestExecuteRejectedLeavesNoTrace(t *testing.T) {
	j := journal.NewMemory()
	l := New(j)
	c := &counter{}

	published := 0
	l.Subscribe(func(Event) { published++ })

	require.NoError(t, submit(l, c, 2))
	err := submit(l, c, -1)
	assert.ErrorIs(t, err, errRejected)

	assert.Equal(t, 2, c.value)
	assert.Equal(t, uint64(1), l.Seq())
	assert.Equal(t, 1, published)

	entries, _ := j.Load(context.Background())
	assert.Len(t, entries, 1)
}

func TestExecuteRollsBackOnJournalFailure(t *testing.T) {
	j := &failingJournal{}
	l := New(j)
	c := &counter{}

	published := 0
	l.Subscribe(func(Event) { published++ })

	require.NoError(t, submit(l, c, 5))

	j.fail = true
	err := submit(l, c, 10)
	require.Error(t, err)

	assert.Equal(t, 5, c.value)
	assert.Equal(t, uint64(1), l.Seq())
	assert.Equal(t, 1, published)

	j.fail = false
	require.NoError(t, submit(l, c, 1))
	assert.Equal(t, uint64(2), l.Seq())
}

func TestExecuteRequiresCaller(t *testing.T) {
	l := New(journal.NewMemory())
	err := l.Execute(context.Background(), Call{Target: contract, Kind: "counter.add"}, func(tx *Tx) error {
		t.Fatal("apply must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrAnonymousCaller)
}

func TestReplayRebuildsState(t *testing.T) {
	j := journal.NewMemory()
	l := New(j)
	c := &counter{}
	c.register(l)

	for _, n := range []int{1, 2, 3} {
		require.NoError(t, submit(l, c, n))
	}

	rebuilt := &counter{}
	l2 := New(j)
	rebuilt.register(l2)

	var events []Event
	l2.Subscribe(func(e Event) { events = append(events, e) })

	n, err := l2.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 6, rebuilt.value)
	assert.Equal(t, uint64(3), l2.Seq())
	assert.Len(t, events, 3)

	require.NoError(t, submit(l2, rebuilt, 4))
	assert.Equal(t, uint64(4), l2.Seq())

	_, err = l2.Replay(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestReplayUnknownOperation(t *testing.T) {
	j := journal.NewMemory()
	l := New(j)
	require.NoError(t, submit(l, &counter{}, 1))

	_, err := New(j).Replay(context.Background())
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestReplayUsesJournaledTime(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	j := journal.NewMemory()
	l := New(j, WithClock(ClockFunc(func() time.Time { return at })))
	c := &counter{}
	require.NoError(t, submit(l, c, 1))

	var seen time.Time
	l2 := New(j)
	l2.Register(contract, "counter.add", func(tx *Tx, _ json.RawMessage) error {
		seen = tx.Now()
		return nil
	})
	_, err := l2.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, at.Equal(seen))
}

func TestReplayMarksTx(t *testing.T) {
	j := journal.NewMemory()
	l := New(j)
	var live bool
	require.NoError(t, l.Execute(context.Background(), Call{
		Target:  contract,
		Kind:    "counter.add",
		Caller:  alice,
		Payload: addPayload{N: 1},
	}, func(tx *Tx) error {
		live = tx.Replaying()
		return nil
	}))
	assert.False(t, live)

	var replayed bool
	l2 := New(j)
	l2.Register(contract, "counter.add", func(tx *Tx, _ json.RawMessage) error {
		replayed = tx.Replaying()
		return nil
	})
	_, err := l2.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, replayed)
}

func TestLedgerTimeIsMonotonic(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(journal.NewMemory(), WithClock(ClockFunc(func() time.Time { return now })))
	c := &counter{}

	require.NoError(t, submit(l, c, 1))

	now = now.Add(-time.Hour)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), l.Now())
}

func TestExecuteSerializesConcurrentCalls(t *testing.T) {
	l := New(journal.NewMemory())
	c := &counter{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = submit(l, c, 1)
		}()
	}
	wg.Wait()

	var value int
	l.View(func() { value = c.value })
	assert.Equal(t, 50, value)
	assert.Equal(t, uint64(50), l.Seq())
}
