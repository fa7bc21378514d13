// Package events keeps the recent committed events for indexers to page
// through.
package events

import (
	"sync"

	"github.com/EternisAI/agent-registry/internal/ledger"
)

const DefaultCapacity = 4096

// Entry is an event with its position in the feed. Cursors start at 1 and
// increase by one per event.
type Entry struct {
	Cursor uint64 `json:"cursor"`
	ledger.Event
}

// Feed is a bounded ring of events. Readers that fall behind by more than its
// capacity miss the oldest events and can tell from the first cursor returned.
type Feed struct {
	mu   sync.RWMutex
	ring []Entry
	next uint64
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{ring: make([]Entry, capacity), next: 1}
}

// Attach subscribes the feed to l's committed events.
func (f *Feed) Attach(l *ledger.Ledger) {
	l.Subscribe(f.Publish)
}

func (f *Feed) Publish(e ledger.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ring[(f.next-1)%uint64(len(f.ring))] = Entry{Cursor: f.next, Event: e}
	f.next++
}

// Read returns up to limit events with a cursor greater than after, oldest
// first.
func (f *Feed) Read(after uint64, limit int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	capacity := uint64(len(f.ring))
	first := after + 1
	if f.next > capacity && first < f.next-capacity {
		first = f.next - capacity
	}
	if limit <= 0 || first >= f.next {
		return []Entry{}
	}

	n := f.next - first
	if n > uint64(limit) {
		n = uint64(limit)
	}
	out := make([]Entry, 0, n)
	for c := first; c < first+n; c++ {
		out = append(out, f.ring[(c-1)%capacity])
	}
	return out
}

// Head is the cursor of the newest event, 0 when empty.
func (f *Feed) Head() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.next - 1
}
