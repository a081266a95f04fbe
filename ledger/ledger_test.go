package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	alice = MustParseIdentity("0x00000000000000000000000000000000000000a1")
	bob   = MustParseIdentity("0x00000000000000000000000000000000000000b0")
	vault = AccountFor("vault")
)

type pinged struct{ N int }

func (pinged) EventName() string { return "Pinged" }

// counterModule is a minimal Module with undo-aware state.
type counterModule struct {
	N int `json:"n"`
}

func (m *counterModule) ModuleName() string { return "counter" }

func (m *counterModule) ExportState() (json.RawMessage, error) { return json.Marshal(m) }

func (m *counterModule) ImportState(raw json.RawMessage) error {
	if raw == nil {
		m.N = 0
		return nil
	}
	var next counterModule
	if err := json.Unmarshal(raw, &next); err != nil {
		return err
	}
	if next.N < 0 {
		return errors.New("negative counter")
	}
	m.N = next.N
	return nil
}

func (m *counterModule) bump(tx *Tx) {
	prev := m.N
	tx.OnRollback(func() { m.N = prev })
	m.N++
}

func TestApply_CommitMovesAttachedValueAndPublishes(t *testing.T) {
	rec := &Recorder{}
	l := New(WithSink(rec))
	require.NoError(t, l.Fund(alice, 2*Ether))

	err := l.Apply(context.Background(), Call{Caller: alice, Value: Ether}, vault, "test.ping", func(ctx context.Context, tx *Tx) error {
		require.Equal(t, alice, tx.Caller())
		require.Equal(t, Ether, tx.BalanceOf(vault))
		tx.Emit(pinged{N: 1})
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.Equal(t, Ether, l.Balance(ctx, alice))
	require.Equal(t, Ether, l.Balance(ctx, vault))
	require.Equal(t, uint64(1), l.Height(ctx))

	envs := rec.Envelopes()
	require.Len(t, envs, 1)
	require.Equal(t, uint64(1), envs[0].Height)
	require.Equal(t, "test.ping", envs[0].Op)
	require.Equal(t, []Event{pinged{N: 1}}, envs[0].Events)
}

func TestApply_FailureRollsBackEverything(t *testing.T) {
	rec := &Recorder{}
	l := New(WithSink(rec))
	m := &counterModule{}
	require.NoError(t, l.Mount(m))
	require.NoError(t, l.Fund(alice, 3*Ether))
	ctx := context.Background()

	before, err := l.Snapshot(ctx)
	require.NoError(t, err)

	boom := Errorf(KindNotLicensable, "nope")
	err = l.Apply(ctx, Call{Caller: alice, Value: Ether}, vault, "test.fail", func(ctx context.Context, tx *Tx) error {
		m.bump(tx)
		if err := tx.Transfer(vault, bob, Ether); err != nil {
			return err
		}
		tx.Emit(pinged{N: 2})
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.True(t, IsKind(err, KindNotLicensable))

	after, err := l.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, 0, m.N)
	require.Empty(t, rec.Envelopes())
}

func TestApply_AttachedValueBeyondBalance(t *testing.T) {
	l := New()
	require.NoError(t, l.Fund(alice, Ether))

	called := false
	err := l.Apply(context.Background(), Call{Caller: alice, Value: 2 * Ether}, vault, "test.overdraw", func(ctx context.Context, tx *Tx) error {
		called = true
		return nil
	})
	require.True(t, IsKind(err, KindInsufficientBalance))
	require.False(t, called)
	require.Equal(t, Ether, l.Balance(context.Background(), alice))
}

func TestApply_PanicIsRolledBack(t *testing.T) {
	l := New()
	require.NoError(t, l.Fund(alice, Ether))

	err := l.Apply(context.Background(), Call{Caller: alice, Value: Ether}, vault, "test.panic", func(ctx context.Context, tx *Tx) error {
		panic("kaboom")
	})
	require.True(t, IsKind(err, KindInternal))
	require.Equal(t, Ether, l.Balance(context.Background(), alice))
	require.Equal(t, Value(0), l.Balance(context.Background(), vault))
}

func TestApply_RejectsNestedTransitions(t *testing.T) {
	l := New()
	err := l.Apply(context.Background(), Call{Caller: alice}, vault, "outer", func(ctx context.Context, tx *Tx) error {
		return l.Apply(ctx, Call{Caller: alice}, vault, "inner", func(context.Context, *Tx) error { return nil })
	})
	require.True(t, IsKind(err, KindInternal))
}

func TestView_InsideTransitionDoesNotDeadlock(t *testing.T) {
	l := New()
	require.NoError(t, l.Fund(alice, Ether))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Apply(context.Background(), Call{Caller: alice}, vault, "test.read", func(ctx context.Context, tx *Tx) error {
			if got := l.Balance(ctx, alice); got != Ether {
				t.Errorf("Balance = %s, want 1", got)
			}
			return nil
		})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Balance inside Apply deadlocked")
	}
}

func TestApply_SerializesConcurrentTransitions(t *testing.T) {
	l := New()
	m := &counterModule{}
	require.NoError(t, l.Mount(m))

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Apply(context.Background(), Call{Caller: alice}, vault, "test.bump", func(ctx context.Context, tx *Tx) error {
				m.bump(tx)
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, workers, m.N)
	require.Equal(t, uint64(workers), l.Height(context.Background()))
}

func TestRestore_RoundTripAndFallback(t *testing.T) {
	ctx := context.Background()
	l := New()
	m := &counterModule{}
	require.NoError(t, l.Mount(m))
	require.NoError(t, l.Fund(alice, 5*Ether))
	require.NoError(t, l.Apply(ctx, Call{Caller: alice, Value: Ether}, vault, "test.bump", func(ctx context.Context, tx *Tx) error {
		m.bump(tx)
		return nil
	}))

	snap, err := l.Snapshot(ctx)
	require.NoError(t, err)

	fresh := New()
	fm := &counterModule{}
	require.NoError(t, fresh.Mount(fm))
	require.NoError(t, fresh.Restore(ctx, snap))
	restored, err := fresh.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, snap, restored)
	require.Equal(t, 1, fm.N)

	bad := snap
	bad.Modules = map[string]json.RawMessage{"counter": json.RawMessage(`{"n":-1}`)}
	bad.Balances = nil
	require.Error(t, fresh.Restore(ctx, bad))
	unchanged, err := fresh.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, snap, unchanged)

	require.Error(t, fresh.Restore(ctx, Snapshot{Modules: map[string]json.RawMessage{"ghost": nil}}))
}

func TestMetrics_CountCommitsAndRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	l := New(WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, l.Apply(ctx, Call{Caller: alice}, vault, "op", func(context.Context, *Tx) error { return nil }))
	_ = l.Apply(ctx, Call{Caller: alice}, vault, "op", func(context.Context, *Tx) error {
		return Errorf(KindNoStakeFound, "No stake found")
	})

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("op", "committed")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("op", "rejected")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Failures.WithLabelValues("op", string(KindNoStakeFound))))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Height))
}

func TestApply_SlowSinkDoesNotBlockLedger(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		heights []uint64
	)
	sink := SinkFunc(func(_ context.Context, env Envelope) error {
		if env.Height == 1 {
			close(entered)
			<-release
		}
		mu.Lock()
		heights = append(heights, env.Height)
		mu.Unlock()
		return nil
	})
	l := New(WithSink(sink))
	require.NoError(t, l.Fund(alice, Ether))

	noop := func(context.Context, *Tx) error { return nil }
	first := make(chan error, 1)
	go func() { first <- l.Apply(ctx, Call{Caller: alice}, vault, "test.first", noop) }()
	<-entered

	second := make(chan error, 1)
	go func() { second <- l.Apply(ctx, Call{Caller: alice}, vault, "test.second", noop) }()

	queried := make(chan uint64, 1)
	go func() {
		for l.Height(ctx) < 2 {
			time.Sleep(time.Millisecond)
		}
		queried <- l.Height(ctx)
	}()
	select {
	case h := <-queried:
		require.Equal(t, uint64(2), h)
	case <-time.After(2 * time.Second):
		t.Fatal("queries and transitions waited on a blocked sink")
	}
	require.Equal(t, Ether, l.Balance(ctx, alice))

	select {
	case <-second:
		t.Fatal("second transition returned before its events were delivered")
	default:
	}

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint64{1, 2}, heights)
}

func TestApply_CancelledContextStillPublishes(t *testing.T) {
	var sinkErr error
	rec := &Recorder{}
	sink := SinkFunc(func(ctx context.Context, env Envelope) error {
		sinkErr = ctx.Err()
		return rec.Publish(ctx, env)
	})
	l := New(WithSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Apply(ctx, Call{Caller: alice}, vault, "test.ping", func(ctx context.Context, tx *Tx) error {
		cancel()
		tx.Emit(pinged{N: 1})
		return nil
	}))
	require.NoError(t, sinkErr)
	require.Equal(t, []Event{pinged{N: 1}}, rec.Events())
}

func TestMetrics_HeightMatchesLedgerUnderConcurrency(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	l := New(WithMetrics(metrics))
	ctx := context.Background()

	const workers = 64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Apply(ctx, Call{Caller: alice}, vault, "op", func(context.Context, *Tx) error { return nil })
		}()
	}
	wg.Wait()
	require.Equal(t, float64(l.Height(ctx)), testutil.ToFloat64(metrics.Height))
	require.Equal(t, float64(workers), testutil.ToFloat64(metrics.Height))
}

func TestMetrics_HeightTracksRestore(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	l := New(WithMetrics(metrics))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Apply(ctx, Call{Caller: alice}, vault, "op", func(context.Context, *Tx) error { return nil }))
	}
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.Height))

	require.NoError(t, l.Restore(ctx, Snapshot{Height: 7}))
	require.Equal(t, 7.0, testutil.ToFloat64(metrics.Height))
}

func TestMount_RejectsDuplicates(t *testing.T) {
	l := New()
	require.NoError(t, l.Mount(&counterModule{}))
	require.Error(t, l.Mount(&counterModule{}))
}
