package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger holds native balances and serializes every registry transition.
type Ledger struct {
	mu       sync.RWMutex
	balances map[Identity]Value
	height   uint64
	modules  []Module
	byName   map[string]Module

	// Committed envelopes wait in outbox, in height order, until a
	// transition holding pubMu hands them to the sinks.
	pubMu  sync.Mutex
	qMu    sync.Mutex
	outbox []Envelope
	sinks  []Sink

	clock   func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(l *Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock overrides the time source used for calls without an explicit Time.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func WithSink(s Sink) Option {
	return func(l *Ledger) {
		l.sinks = append(l.sinks, s)
	}
}

// New constructs an empty Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		balances: make(map[Identity]Value),
		byName:   make(map[string]Module),
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Logger returns a logger scoped to the named module.
func (l *Ledger) Logger(module string) *slog.Logger {
	return l.logger.With("module", module)
}

// Now returns the ledger clock reading used for calls without an explicit Time.
func (l *Ledger) Now() time.Time { return l.clock() }

// AddSink attaches an event sink after construction.
func (l *Ledger) AddSink(s Sink) {
	l.pubMu.Lock()
	defer l.pubMu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Fund credits v to an external account. It models value entering the ledger
// from outside and is used for genesis allocations and tests.
func (l *Ledger) Fund(id Identity, v Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	nb, err := l.balances[id].Add(v)
	if err != nil {
		return err
	}
	l.setBalance(id, nb)
	return nil
}

// Balance returns the native balance of id.
func (l *Ledger) Balance(ctx context.Context, id Identity) Value {
	defer l.View(ctx)()
	return l.balances[id]
}

// Height returns the number of committed transitions.
func (l *Ledger) Height(ctx context.Context) uint64 {
	defer l.View(ctx)()
	return l.height
}

// View acquires the shared lock for a read-only query and returns the release
// func. Inside a transition of this ledger it does not lock:
//
//	defer l.View(ctx)()
func (l *Ledger) View(ctx context.Context) (release func()) {
	if tx, ok := TxFrom(ctx); ok && tx.ledger == l {
		return func() {}
	}
	l.mu.RLock()
	return l.mu.RUnlock
}

// Apply runs fn as one atomic transition on behalf of call.
//
// The attached value is moved from the caller to target before fn runs. If fn
// (or the value transfer) fails, every journaled change is undone, pending
// events are dropped and the error is returned unchanged.
//
// A committed envelope reaches every sink, in height order, before Apply
// returns. Sinks run outside the ledger lock and their context is detached
// from ctx cancellation, so a caller that gives up cannot drop the events of
// a transition that already committed.
func (l *Ledger) Apply(ctx context.Context, call Call, target Identity, op string, fn func(ctx context.Context, tx *Tx) error) error {
	if _, nested := TxFrom(ctx); nested {
		return Errorf(KindInternal, "ledger: nested transition %s", op)
	}
	start := time.Now()

	l.mu.Lock()
	now := call.Time
	if now.IsZero() {
		now = l.clock()
	}
	tx := &Tx{
		ledger: l,
		id:     uuid.New(),
		op:     op,
		call:   call,
		now:    now,
		height: l.height + 1,
	}
	err := l.run(ctx, tx, target, fn)
	if err != nil {
		l.mu.Unlock()
		l.metrics.observe(op, err, start)
		l.logger.InfoContext(ctx, "transition rejected",
			"op", op,
			"caller", call.Caller.String(),
			"value", call.Value.String(),
			"kind", string(KindOf(err)),
			"error", err.Error(),
		)
		return err
	}
	l.height = tx.height
	env := Envelope{
		TxID:   tx.id,
		Height: tx.height,
		Op:     op,
		Caller: call.Caller,
		Value:  call.Value,
		Time:   now,
		Events: tx.events,
	}

	l.metrics.setHeight(env.Height)
	l.qMu.Lock()
	l.outbox = append(l.outbox, env)
	l.qMu.Unlock()
	l.mu.Unlock()

	// Sinks run outside the ledger lock. By the time pubMu is acquired env
	// has either been delivered by an earlier transition or is in the batch.
	l.pubMu.Lock()
	l.qMu.Lock()
	batch := l.outbox
	l.outbox = nil
	l.qMu.Unlock()
	pubCtx := context.WithoutCancel(ctx)
	for _, e := range batch {
		l.publish(pubCtx, e)
	}
	l.pubMu.Unlock()

	l.metrics.observe(op, nil, start)
	l.logger.DebugContext(ctx, "transition applied",
		"tx_id", env.TxID.String(),
		"height", env.Height,
		"op", op,
		"caller", call.Caller.String(),
		"events", len(env.Events),
	)
	return nil
}

func (l *Ledger) run(ctx context.Context, tx *Tx, target Identity, fn func(ctx context.Context, tx *Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			err = Errorf(KindInternal, "ledger: %s panicked: %v", tx.op, r)
		}
	}()
	if err := tx.Transfer(tx.call.Caller, target, tx.call.Value); err != nil {
		tx.rollback()
		return err
	}
	if err := fn(withTx(ctx, tx), tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, env Envelope) {
	for _, s := range l.sinks {
		if err := s.Publish(ctx, env); err != nil {
			l.logger.WarnContext(ctx, "event sink failed",
				"tx_id", env.TxID.String(),
				"height", env.Height,
				"error", err.Error(),
			)
		}
	}
}

func (l *Ledger) setBalance(id Identity, v Value) {
	if v == 0 {
		delete(l.balances, id)
		return
	}
	l.balances[id] = v
}

// Mount registers a module for snapshots. Names must be unique.
func (l *Ledger) Mount(m Module) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := m.ModuleName()
	if name == "" {
		return fmt.Errorf("ledger: module name is required")
	}
	if _, exists := l.byName[name]; exists {
		return fmt.Errorf("ledger: module %q already mounted", name)
	}
	l.byName[name] = m
	l.modules = append(l.modules, m)
	return nil
}
