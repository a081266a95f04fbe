package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Call is the caller context of one transition: who is calling, how much
// value is attached, and (optionally) the block time. A zero Time means the
// ledger clock is used.
type Call struct {
	Caller Identity
	Value  Value
	Time   time.Time
}

// Tx is an in-flight transition. It is only valid inside the function passed
// to Ledger.Apply.
type Tx struct {
	ledger *Ledger
	id     uuid.UUID
	op     string
	call   Call
	now    time.Time
	height uint64

	undo   []func()
	events []Event
}

func (tx *Tx) ID() uuid.UUID               { return tx.id }
func (tx *Tx) Op() string                  { return tx.op }
func (tx *Tx) Caller() Identity            { return tx.call.Caller }
func (tx *Tx) Value() Value                { return tx.call.Value }
func (tx *Tx) Now() time.Time              { return tx.now }
func (tx *Tx) Height() uint64              { return tx.height }
func (tx *Tx) Events() []Event             { return append([]Event(nil), tx.events...) }
func (tx *Tx) BalanceOf(id Identity) Value { return tx.ledger.balances[id] }

// Transfer moves v from one account to another. Both writes are journaled.
func (tx *Tx) Transfer(from, to Identity, v Value) error {
	if v == 0 || from == to {
		return nil
	}
	l := tx.ledger
	fromBal := l.balances[from]
	if fromBal < v {
		return &Error{
			Kind:     KindInsufficientBalance,
			Identity: from,
			Message:  "insufficient balance: account " + from.String() + " has " + fromBal.String() + ", needs " + v.String(),
		}
	}
	toBal := l.balances[to]
	newTo, err := toBal.Add(v)
	if err != nil {
		return err
	}

	tx.OnRollback(func() {
		l.setBalance(from, fromBal)
		l.setBalance(to, toBal)
	})
	l.setBalance(from, fromBal-v)
	l.setBalance(to, newTo)
	return nil
}

// Emit buffers an event. Events reach the sinks only if the transition commits.
func (tx *Tx) Emit(e Event) {
	tx.events = append(tx.events, e)
}

// OnRollback registers fn to undo a state change if the transition fails.
// Hooks run in reverse registration order.
func (tx *Tx) OnRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}
