// Package redisstream publishes committed ledger events to a Redis stream.
//
// Each event becomes one stream entry with the fields tx_id, height, op,
// caller, event and payload (the event as JSON). Entries of one transition
// are written in a single MULTI/EXEC so observers never see half a
// transition.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"blocksui.xyz/ledger/ledger"
)

// DefaultStream is used when no stream name is configured.
const DefaultStream = "bui:ledger:events"

type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

var _ ledger.Sink = (*Sink)(nil)

type Option func(s *Sink)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithMaxLen caps the stream length (approximate trimming).
func WithMaxLen(n int64) Option {
	return func(s *Sink) {
		s.maxLen = n
	}
}

func New(client *redis.Client, stream string, opts ...Option) *Sink {
	if stream == "" {
		stream = DefaultStream
	}
	s := &Sink{
		client: client,
		stream: stream,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to url and verifies the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *Sink) Publish(ctx context.Context, env ledger.Envelope) error {
	if len(env.Events) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, e := range env.Events {
		values, err := entryValues(env, e)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: s.maxLen > 0,
			Values: values,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstream: publish height %d: %w", env.Height, err)
	}
	s.logger.DebugContext(ctx, "events published", "stream", s.stream, "height", env.Height, "count", len(env.Events))
	return nil
}

func entryValues(env ledger.Envelope, e ledger.Event) (map[string]any, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("redisstream: encode %s: %w", e.EventName(), err)
	}
	return map[string]any{
		"tx_id":   env.TxID.String(),
		"height":  strconv.FormatUint(env.Height, 10),
		"op":      env.Op,
		"caller":  env.Caller.String(),
		"event":   e.EventName(),
		"payload": string(payload),
	}, nil
}

// Entry is a decoded stream entry.
type Entry struct {
	ID      string
	TxID    string
	Height  uint64
	Op      string
	Caller  string
	Event   string
	Payload json.RawMessage
}

// Read returns up to count entries after the stream id after. An empty after
// reads from the start of the stream.
func Read(ctx context.Context, client *redis.Client, stream, after string, count int64) ([]Entry, error) {
	start := "-"
	if after != "" {
		start = "(" + after
	}
	msgs, err := client.XRangeN(ctx, stream, start, "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstream: read %s: %w", stream, err)
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		e, err := decodeEntry(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeEntry(m redis.XMessage) (Entry, error) {
	str := func(k string) string {
		v, _ := m.Values[k].(string)
		return v
	}
	height, err := strconv.ParseUint(str("height"), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("redisstream: entry %s: bad height: %w", m.ID, err)
	}
	return Entry{
		ID:      m.ID,
		TxID:    str("tx_id"),
		Height:  height,
		Op:      str("op"),
		Caller:  str("caller"),
		Event:   str("event"),
		Payload: json.RawMessage(str("payload")),
	}, nil
}
