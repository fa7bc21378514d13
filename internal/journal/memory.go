package journal

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps entries in process. It is the default when no database is
// configured and loses everything on restart.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if want := uint64(len(m.entries)) + 1; e.Seq != want {
		return fmt.Errorf("%w: got %d, want %d", ErrSequenceConflict, e.Seq, want)
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Load(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
