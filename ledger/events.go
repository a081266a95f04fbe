package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a notification for external observers. Registries define their
// own event types.
type Event interface {
	EventName() string
}

// Envelope groups the events of one committed transition.
type Envelope struct {
	TxID   uuid.UUID
	Height uint64
	Op     string
	Caller Identity
	Value  Value
	Time   time.Time
	Events []Event
}

// Sink receives committed envelopes in height order. A sink error is logged;
// it never undoes the transition.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
}

type SinkFunc func(ctx context.Context, env Envelope) error

func (f SinkFunc) Publish(ctx context.Context, env Envelope) error { return f(ctx, env) }

// Recorder is an in-memory Sink.
type Recorder struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *Recorder) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *Recorder) Envelopes() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.envs...)
}

// Events flattens all recorded events in commit order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, env := range r.envs {
		out = append(out, env.Events...)
	}
	return out
}

// Last returns the most recent event, or nil.
func (r *Recorder) Last() Event {
	events := r.Events()
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = nil
}

// LogSink writes every event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, env Envelope) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, e := range env.Events {
		logger.InfoContext(ctx, e.EventName(),
			"tx_id", env.TxID.String(),
			"height", env.Height,
			"event", e,
		)
	}
	return nil
}
