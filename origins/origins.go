// Package origins implements the origin registry: stake-gated ownership of
// web origins.
//
// Deposits are pooled. Each caller's deposits are tallied and compared with
// the minimum balance on every registration, but nothing is refunded on
// unregister and the administrator may withdraw the pool at any time.
package origins

import (
	"context"
	"log/slog"
	"slices"

	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
)

const ModuleName = "origins"

// Account is the deposit pool.
var Account = ledger.AccountFor(ModuleName)

type Record struct {
	Owner  ledger.Identity `json:"owner"`
	Hash   origin.Hash     `json:"hash"`
	Origin string          `json:"origin"`
}

type Registry struct {
	l       *ledger.Ledger
	admin   ledger.Identity
	logger  *slog.Logger
	initial ledger.Value

	minimum  ledger.Value
	records  map[origin.Hash]Record
	byOwner  map[ledger.Identity][]origin.Hash
	deposits map[ledger.Identity]ledger.Value
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry administered by admin that requires minimumBalance
// of cumulative deposits per registrant.
func New(l *ledger.Ledger, admin ledger.Identity, minimumBalance ledger.Value, opts ...Option) *Registry {
	r := &Registry{
		l:        l,
		admin:    admin,
		logger:   l.Logger(ModuleName),
		initial:  minimumBalance,
		minimum:  minimumBalance,
		records:  make(map[origin.Hash]Record),
		byOwner:  make(map[ledger.Identity][]origin.Hash),
		deposits: make(map[ledger.Identity]ledger.Value),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Admin() ledger.Identity { return r.admin }

// Register records rawOrigin for the caller and returns its hash.
func (r *Registry) Register(ctx context.Context, call ledger.Call, rawOrigin string) (origin.Hash, error) {
	if rawOrigin == "" {
		return origin.Hash{}, ledger.Errorf(ledger.KindInvalidArgument, "origin is required")
	}
	h := origin.Of(rawOrigin)
	err := r.l.Apply(ctx, call, Account, ModuleName+".register", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		deposit, err := r.deposits[caller].Add(tx.Value())
		if err != nil {
			return err
		}
		if deposit < r.minimum {
			return &ledger.Error{Kind: ledger.KindInsufficientStake, Identity: caller, Message: "Must meet the minimum balance requirement"}
		}
		if _, taken := r.records[h]; taken {
			return &ledger.Error{Kind: ledger.KindDuplicateOrigin, Identity: caller, Message: "This origin is already registered"}
		}

		prevDeposit, hadDeposit := r.deposits[caller]
		prevList := r.byOwner[caller]
		tx.OnRollback(func() {
			delete(r.records, h)
			if len(prevList) == 0 {
				delete(r.byOwner, caller)
			} else {
				r.byOwner[caller] = prevList
			}
			if hadDeposit {
				r.deposits[caller] = prevDeposit
			} else {
				delete(r.deposits, caller)
			}
		})
		if deposit > 0 {
			r.deposits[caller] = deposit
		}
		r.records[h] = Record{Owner: caller, Hash: h, Origin: rawOrigin}
		r.byOwner[caller] = append(slices.Clip(prevList), h)
		tx.Emit(OriginRegistered{Owner: caller, Origin: h})
		return nil
	})
	if err != nil {
		return origin.Hash{}, err
	}
	return h, nil
}

// Unregister removes a record owned by the caller. Deposits stay pooled.
func (r *Registry) Unregister(ctx context.Context, call ledger.Call, h origin.Hash) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".unregister", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		rec, ok := r.records[h]
		if !ok || rec.Owner != caller {
			return &ledger.Error{Kind: ledger.KindNotAuthorized, Identity: caller, Message: "Not authorized"}
		}
		prevList := r.byOwner[caller]
		tx.OnRollback(func() {
			r.records[h] = rec
			r.byOwner[caller] = prevList
		})
		delete(r.records, h)
		next := slices.DeleteFunc(slices.Clone(prevList), func(x origin.Hash) bool { return x == h })
		if len(next) == 0 {
			delete(r.byOwner, caller)
		} else {
			r.byOwner[caller] = next
		}
		tx.Emit(OriginUnregistered{Owner: caller, Origin: h})
		return nil
	})
}

// VerifyOwner reports whether id owns the origin with hash h.
func (r *Registry) VerifyOwner(ctx context.Context, h origin.Hash, id ledger.Identity) bool {
	defer r.l.View(ctx)()
	rec, ok := r.records[h]
	return ok && rec.Owner == id
}

// OriginsFor lists the raw origins owned by id in registration order.
func (r *Registry) OriginsFor(ctx context.Context, id ledger.Identity) []string {
	defer r.l.View(ctx)()
	hashes := r.byOwner[id]
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, r.records[h].Origin)
	}
	return out
}

func (r *Registry) Record(ctx context.Context, h origin.Hash) (Record, bool) {
	defer r.l.View(ctx)()
	rec, ok := r.records[h]
	return rec, ok
}

// DepositOf returns the cumulative deposits credited to id.
func (r *Registry) DepositOf(ctx context.Context, id ledger.Identity) ledger.Value {
	defer r.l.View(ctx)()
	return r.deposits[id]
}

func (r *Registry) MinimumBalance(ctx context.Context) ledger.Value {
	defer r.l.View(ctx)()
	return r.minimum
}

func (r *Registry) SetMinimumBalance(ctx context.Context, call ledger.Call, minimum ledger.Value) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".setMinimumBalance", func(ctx context.Context, tx *ledger.Tx) error {
		if err := ledger.RequireAdmin(r.admin, tx.Caller()); err != nil {
			return err
		}
		prev := r.minimum
		tx.OnRollback(func() { r.minimum = prev })
		r.minimum = minimum
		tx.Emit(MinimumBalanceChanged{Old: prev, New: minimum})
		return nil
	})
}

// Withdraw pays the whole pool to the administrator. Deposit tallies are
// kept.
func (r *Registry) Withdraw(ctx context.Context, call ledger.Call) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".withdraw", func(ctx context.Context, tx *ledger.Tx) error {
		if err := ledger.RequireAdmin(r.admin, tx.Caller()); err != nil {
			return err
		}
		amount := tx.BalanceOf(Account)
		if err := tx.Transfer(Account, r.admin, amount); err != nil {
			return err
		}
		tx.Emit(Withdrawn{To: r.admin, Amount: amount})
		return nil
	})
}
