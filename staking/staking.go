// Package staking implements the node stake registry.
//
// An identity becomes a trusted node by locking at least the current staking
// cost. The whole attached value is held as the stake and returned in full on
// unregister.
package staking

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"blocksui.xyz/ledger/ledger"
)

const ModuleName = "staking"

// Account is the custody account holding all stakes.
var Account = ledger.AccountFor(ModuleName)

type Stake struct {
	Owner  ledger.Identity `json:"owner"`
	Amount ledger.Value    `json:"amount"`
}

type Registry struct {
	l       *ledger.Ledger
	admin   ledger.Identity
	logger  *slog.Logger
	initial ledger.Value

	cost   ledger.Value
	stakes map[ledger.Identity]Stake
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry administered by admin with the given staking cost.
func New(l *ledger.Ledger, admin ledger.Identity, cost ledger.Value, opts ...Option) *Registry {
	r := &Registry{
		l:       l,
		admin:   admin,
		logger:  l.Logger(ModuleName),
		initial: cost,
		cost:    cost,
		stakes:  make(map[ledger.Identity]Stake),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Admin() ledger.Identity { return r.admin }

// Register stakes the attached value for the caller.
func (r *Registry) Register(ctx context.Context, call ledger.Call) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".register", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		if tx.Value() < r.cost {
			return &ledger.Error{Kind: ledger.KindInsufficientStake, Identity: caller, Message: "Not enough stake"}
		}
		if _, ok := r.stakes[caller]; ok {
			return &ledger.Error{Kind: ledger.KindAlreadyRegistered, Identity: caller, Message: "Already registered"}
		}
		r.put(tx, Stake{Owner: caller, Amount: tx.Value()})
		tx.Emit(NodeRegistered{Node: caller, Amount: tx.Value()})
		return nil
	})
}

// Unregister removes the caller's stake and pays it back.
func (r *Registry) Unregister(ctx context.Context, call ledger.Call) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".unregister", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		stake, ok := r.stakes[caller]
		if !ok {
			return &ledger.Error{Kind: ledger.KindNoStakeFound, Identity: caller, Message: "No stake found"}
		}
		r.remove(tx, caller)
		if err := tx.Transfer(Account, caller, stake.Amount); err != nil {
			return err
		}
		tx.Emit(NodeUnregistered{Node: caller, Amount: stake.Amount})
		return nil
	})
}

// SetStakingCost changes the cost for future registrations.
func (r *Registry) SetStakingCost(ctx context.Context, call ledger.Call, cost ledger.Value) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".setStakingCost", func(ctx context.Context, tx *ledger.Tx) error {
		if err := ledger.RequireAdmin(r.admin, tx.Caller()); err != nil {
			return err
		}
		prev := r.cost
		tx.OnRollback(func() { r.cost = prev })
		r.cost = cost
		tx.Emit(StakingCostChanged{Old: prev, New: cost})
		return nil
	})
}

// Verify reports whether id holds a stake.
func (r *Registry) Verify(ctx context.Context, id ledger.Identity) bool {
	defer r.l.View(ctx)()
	_, ok := r.stakes[id]
	return ok
}

func (r *Registry) StakeOf(ctx context.Context, id ledger.Identity) (Stake, bool) {
	defer r.l.View(ctx)()
	s, ok := r.stakes[id]
	return s, ok
}

func (r *Registry) StakingCost(ctx context.Context) ledger.Value {
	defer r.l.View(ctx)()
	return r.cost
}

// TotalStaked sums every active stake. It equals the custody balance unless
// value was sent to the account outside Register.
func (r *Registry) TotalStaked(ctx context.Context) ledger.Value {
	defer r.l.View(ctx)()
	var total ledger.Value
	for _, s := range r.stakes {
		total += s.Amount
	}
	return total
}

func (r *Registry) put(tx *ledger.Tx, s Stake) {
	prev, existed := r.stakes[s.Owner]
	tx.OnRollback(func() {
		if existed {
			r.stakes[s.Owner] = prev
			return
		}
		delete(r.stakes, s.Owner)
	})
	r.stakes[s.Owner] = s
}

func (r *Registry) remove(tx *ledger.Tx, id ledger.Identity) {
	prev, existed := r.stakes[id]
	if !existed {
		return
	}
	tx.OnRollback(func() { r.stakes[id] = prev })
	delete(r.stakes, id)
}

type state struct {
	Cost   ledger.Value `json:"cost"`
	Stakes []Stake      `json:"stakes"`
}

func (r *Registry) ModuleName() string { return ModuleName }

func (r *Registry) ExportState() (json.RawMessage, error) {
	st := state{Cost: r.cost, Stakes: make([]Stake, 0, len(r.stakes))}
	for _, s := range r.stakes {
		st.Stakes = append(st.Stakes, s)
	}
	slices.SortFunc(st.Stakes, func(a, b Stake) int { return a.Owner.Compare(b.Owner) })
	return json.Marshal(st)
}

func (r *Registry) ImportState(raw json.RawMessage) error {
	st := state{Cost: r.initial}
	if raw != nil {
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
	}
	stakes := make(map[ledger.Identity]Stake, len(st.Stakes))
	for _, s := range st.Stakes {
		if _, dup := stakes[s.Owner]; dup {
			return ledger.Errorf(ledger.KindInvalidArgument, "staking: duplicate stake for %s", s.Owner)
		}
		stakes[s.Owner] = s
	}
	r.cost = st.Cost
	r.stakes = stakes
	r.logger.Debug("state imported", "stakes", len(stakes))
	return nil
}
