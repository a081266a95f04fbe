// Package app wires the ledger and the five registries of one deployment.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/prometheus/client_golang/prometheus"

	"blocksui.xyz/ledger/checkpoint"
	"blocksui.xyz/ledger/config"
	"blocksui.xyz/ledger/content"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/license"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origins"
	"blocksui.xyz/ledger/rpc"
	"blocksui.xyz/ledger/staking"
	"blocksui.xyz/ledger/storage"
)

type App struct {
	Ledger      *ledger.Ledger
	Staking     *staking.Registry
	Content     *content.Registry
	Origins     *origins.Registry
	Marketplace *marketplace.Registry
	License     *license.Registry

	logger *slog.Logger
}

type options struct {
	logger  *slog.Logger
	clock   func() time.Time
	metrics prometheus.Registerer
	sinks   []ledger.Sink
}

type Option func(o *options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMetrics registers ledger metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

func WithSink(s ledger.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, s)
	}
}

// New builds the ledger, mounts every registry and credits the genesis
// balances.
func New(p config.Params, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	lopts := []ledger.Option{ledger.WithLogger(o.logger)}
	if o.clock != nil {
		lopts = append(lopts, ledger.WithClock(o.clock))
	}
	if o.metrics != nil {
		lopts = append(lopts, ledger.WithMetrics(ledger.NewMetrics(o.metrics)))
	}
	for _, s := range o.sinks {
		lopts = append(lopts, ledger.WithSink(s))
	}
	l := ledger.New(lopts...)

	// Registries log through l.Logger(ModuleName) by default.
	a := &App{Ledger: l, logger: o.logger}
	a.Staking = staking.New(l, p.Admin, p.StakingCost)
	a.Content = content.New(l, p.Admin, p.PublishPrice)
	a.Origins = origins.New(l, p.Admin, p.MinimumBalance)
	a.Marketplace = marketplace.New(l, p.Admin, a.Content, p.ListingFee)
	a.License = license.New(l, a.Content, a.Marketplace)

	for _, m := range []ledger.Module{a.Staking, a.Content, a.Origins, a.Marketplace, a.License} {
		if err := l.Mount(m); err != nil {
			return nil, err
		}
	}
	for id, v := range p.Genesis {
		if err := l.Fund(id, v); err != nil {
			return nil, fmt.Errorf("app: genesis %s: %w", id, err)
		}
	}
	return a, nil
}

// RPCServer returns the Query and Transact gRPC services over this deployment.
func (a *App) RPCServer() *rpc.Server {
	return &rpc.Server{
		Ledger:      a.Ledger,
		Staking:     a.Staking,
		Content:     a.Content,
		Origins:     a.Origins,
		Marketplace: a.Marketplace,
		Licenses:    a.License,
	}
}

func (a *App) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	return a.Ledger.Snapshot(ctx)
}

func (a *App) Restore(ctx context.Context, snap ledger.Snapshot) error {
	return a.Ledger.Restore(ctx, snap)
}

// Checkpoint stores the current state in cas and returns its CID.
func (a *App) Checkpoint(ctx context.Context, cas storage.CAS) (cid.Cid, error) {
	snap, err := a.Snapshot(ctx)
	if err != nil {
		return cid.Undef, err
	}
	id, err := checkpoint.Save(ctx, cas, snap)
	if err != nil {
		return cid.Undef, err
	}
	a.logger.InfoContext(ctx, "checkpoint saved", "cid", id.String(), "height", snap.Height)
	return id, nil
}

// RestoreCheckpoint loads the checkpoint id from cas and replaces the state.
func (a *App) RestoreCheckpoint(ctx context.Context, cas storage.CAS, id cid.Cid) error {
	snap, err := checkpoint.Load(ctx, cas, id)
	if err != nil {
		return fmt.Errorf("app: load checkpoint %s: %w", id, err)
	}
	return a.Restore(ctx, snap)
}
