// Package ledger executes registry operations one at a time, in a single
// global order, each one atomically. It hands every operation the
// authenticated caller and the ledger time, journals committed operations and
// publishes the events they emit.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/journal"
)

var (
	ErrAnonymousCaller  = errors.New("caller identity is required")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrAlreadyStarted   = errors.New("ledger already has committed operations")
	ErrJournalGap       = errors.New("journal is not contiguous")
)

// Clock supplies ledger time.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Handler re-applies a journaled operation during replay.
type Handler func(tx *Tx, payload json.RawMessage) error

// Call describes one operation submitted to the ledger. Payload is journaled
// as JSON and handed back to the registered Handler on replay.
type Call struct {
	Target  account.Address
	Kind    string
	Caller  account.Address
	Payload any
}

type handlerKey struct {
	target account.Address
	kind   string
}

type Ledger struct {
	mu       sync.RWMutex
	journal  journal.Journal
	clock    Clock
	tracer   trace.Tracer
	handlers map[handlerKey]Handler
	subs     []func(Event)
	seq      uint64
	last     time.Time
}

type Option func(*Ledger)

func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) { l.tracer = t }
}

func New(j journal.Journal, opts ...Option) *Ledger {
	l := &Ledger{
		journal:  j,
		clock:    systemClock{},
		tracer:   noop.NewTracerProvider().Tracer("ledger"),
		handlers: make(map[handlerKey]Handler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register binds a replay handler to an operation kind on one contract.
func (l *Ledger) Register(target account.Address, kind string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[handlerKey{target: target, kind: kind}] = h
}

// Subscribe adds a listener for committed events. Listeners run while the
// ledger lock is held and must not call back into the ledger.
func (l *Ledger) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Execute runs apply as one atomic operation. If apply fails, or the journal
// refuses the entry, every rollback hook registered on the Tx runs in reverse
// order and no event is published.
func (l *Ledger) Execute(ctx context.Context, call Call, apply func(tx *Tx) error) error {
	ctx, span := l.tracer.Start(ctx, call.Kind, trace.WithAttributes(
		attribute.String("ledger.target", call.Target.Hex()),
		attribute.String("ledger.caller", call.Caller.Hex()),
	))
	defer span.End()

	err := l.execute(ctx, call, apply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (l *Ledger) execute(ctx context.Context, call Call, apply func(tx *Tx) error) error {
	if call.Caller.IsZero() {
		return ErrAnonymousCaller
	}

	payload, err := json.Marshal(call.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", call.Kind, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{
		ctx:      ctx,
		seq:      l.seq + 1,
		caller:   call.Caller,
		contract: call.Target,
		now:      l.nowLocked(),
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("ledger.seq", int64(tx.seq)))

	if err := apply(tx); err != nil {
		tx.rollback()
		slog.Debug("Operation rejected", "kind", call.Kind, "caller", call.Caller.Hex(), "error", err)
		return err
	}

	entry := journal.Entry{
		Seq:     tx.seq,
		ID:      uuid.New(),
		Target:  call.Target,
		Kind:    call.Kind,
		Caller:  call.Caller,
		At:      tx.now,
		Payload: payload,
	}
	if err := l.journal.Append(ctx, entry); err != nil {
		tx.rollback()
		slog.Error("Failed to journal operation", "kind", call.Kind, "seq", tx.seq, "error", err)
		return fmt.Errorf("journal %s: %w", call.Kind, err)
	}

	l.commitLocked(tx)
	return nil
}

// Replay re-applies every journaled operation through the registered
// handlers. It must run before the first Execute.
func (l *Ledger) Replay(ctx context.Context) (int, error) {
	entries, err := l.journal.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seq != 0 {
		return 0, ErrAlreadyStarted
	}

	for _, e := range entries {
		if e.Seq != l.seq+1 {
			return int(l.seq), fmt.Errorf("%w: expected seq %d, found %d", ErrJournalGap, l.seq+1, e.Seq)
		}

		h, ok := l.handlers[handlerKey{target: e.Target, kind: e.Kind}]
		if !ok {
			return int(l.seq), fmt.Errorf("%w: %s on %s (seq %d)", ErrUnknownOperation, e.Kind, e.Target.Hex(), e.Seq)
		}

		tx := &Tx{
			ctx:      ctx,
			seq:      e.Seq,
			caller:   e.Caller,
			contract: e.Target,
			now:      e.At.UTC(),
			replay:   true,
		}
		if err := h(tx, e.Payload); err != nil {
			tx.rollback()
			return int(l.seq), fmt.Errorf("replay seq %d (%s): %w", e.Seq, e.Kind, err)
		}
		l.commitLocked(tx)
	}

	if len(entries) > 0 {
		slog.Info("Ledger replayed", "operations", len(entries), "seq", l.seq)
	}
	return len(entries), nil
}

// View runs fn under a shared lock so that it observes committed state only.
func (l *Ledger) View(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn()
}

// Now returns the current ledger time. Ledger time never moves backwards
// relative to committed operations.
func (l *Ledger) Now() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nowLocked()
}

// Seq returns the sequence number of the last committed operation.
func (l *Ledger) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

func (l *Ledger) nowLocked() time.Time {
	now := l.clock.Now().UTC()
	if now.Before(l.last) {
		return l.last
	}
	return now
}

func (l *Ledger) commitLocked(tx *Tx) {
	l.seq = tx.seq
	l.last = tx.now

	for _, e := range tx.events {
		for _, fn := range l.subs {
			fn(e)
		}
	}
}
