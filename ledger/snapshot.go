package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Module is a registry whose state can be exported into and imported from a
// Snapshot. The ledger calls ExportState and ImportState while holding its
// lock; modules must not call them directly. ImportState(nil) resets the
// module to its empty state.
type Module interface {
	ModuleName() string
	ExportState() (json.RawMessage, error)
	ImportState(raw json.RawMessage) error
}

type BalanceEntry struct {
	Account Identity `json:"account"`
	Amount  Value    `json:"amount"`
}

// Snapshot is the complete ledger state at a height.
type Snapshot struct {
	Height   uint64                     `json:"height"`
	Balances []BalanceEntry             `json:"balances"`
	Modules  map[string]json.RawMessage `json:"modules"`
}

// Snapshot exports balances and every mounted module under the shared lock.
func (l *Ledger) Snapshot(ctx context.Context) (Snapshot, error) {
	defer l.View(ctx)()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() (Snapshot, error) {
	snap := Snapshot{
		Height:   l.height,
		Balances: make([]BalanceEntry, 0, len(l.balances)),
		Modules:  make(map[string]json.RawMessage, len(l.modules)),
	}
	for id, v := range l.balances {
		snap.Balances = append(snap.Balances, BalanceEntry{Account: id, Amount: v})
	}
	sort.Slice(snap.Balances, func(i, j int) bool {
		return snap.Balances[i].Account.Compare(snap.Balances[j].Account) < 0
	})
	for _, m := range l.modules {
		raw, err := m.ExportState()
		if err != nil {
			return Snapshot{}, fmt.Errorf("ledger: export %s: %w", m.ModuleName(), err)
		}
		snap.Modules[m.ModuleName()] = raw
	}
	return snap, nil
}

// Restore replaces the whole ledger state with snap. Modules absent from snap
// are reset to their empty state. If any module rejects its state, every
// module and all balances are put back as they were.
func (l *Ledger) Restore(ctx context.Context, snap Snapshot) error {
	if _, nested := TxFrom(ctx); nested {
		return Errorf(KindInternal, "ledger: restore inside a transition")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for name := range snap.Modules {
		if _, ok := l.byName[name]; !ok {
			return fmt.Errorf("ledger: snapshot contains unknown module %q", name)
		}
	}
	balances := make(map[Identity]Value, len(snap.Balances))
	for _, b := range snap.Balances {
		if _, dup := balances[b.Account]; dup {
			return fmt.Errorf("ledger: duplicate balance for %s", b.Account)
		}
		if b.Amount != 0 {
			balances[b.Account] = b.Amount
		}
	}

	prev, err := l.snapshotLocked()
	if err != nil {
		return err
	}
	for i, m := range l.modules {
		if err := m.ImportState(snap.Modules[m.ModuleName()]); err != nil {
			for _, done := range l.modules[:i+1] {
				_ = done.ImportState(prev.Modules[done.ModuleName()])
			}
			return fmt.Errorf("ledger: import %s: %w", m.ModuleName(), err)
		}
	}
	l.balances = balances
	l.height = snap.Height
	l.metrics.setHeight(snap.Height)
	l.logger.InfoContext(ctx, "ledger restored", "height", snap.Height, "modules", len(snap.Modules))
	return nil
}
