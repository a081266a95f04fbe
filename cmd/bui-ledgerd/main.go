// Command bui-ledgerd hosts one ledger deployment. It serves the gRPC query
// and transition services next to an ops HTTP router, and writes a checkpoint
// on shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"blocksui.xyz/ledger/app"
	"blocksui.xyz/ledger/checkpoint"
	"blocksui.xyz/ledger/cidutil"
	"blocksui.xyz/ledger/config"
	"blocksui.xyz/ledger/events/redisstream"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/rpc"
	"blocksui.xyz/ledger/storage/casregistry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("bui-ledgerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "config file (yaml, json or toml)")
	listBackends := fs.Bool("list-backends", false, "List supported checkpoint backends and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List() {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewJSONHandler(errOut, &slog.HandlerOptions{Level: level}))

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("bui-ledgerd stopped", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []app.Option{app.WithLogger(logger), app.WithMetrics(reg), app.WithSink(ledger.LogSink{Logger: logger.With("component", "events")})}
	if cfg.Events.RedisURL != "" {
		client, err := redisstream.Dial(ctx, cfg.Events.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, app.WithSink(redisstream.New(client, cfg.Events.Stream, redisstream.WithLogger(logger))))
	}

	a, err := app.New(params, opts...)
	if err != nil {
		return err
	}

	cas, closeCAS, err := checkpoint.Open(checkpoint.Options{
		Backend:   cfg.Checkpoint.Backend,
		Dir:       cfg.Checkpoint.Dir,
		MirrorDir: cfg.Checkpoint.MirrorDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCAS(); err != nil {
			logger.Warn("close checkpoint store", "error", err)
		}
	}()

	if cfg.Checkpoint.Restore != "" {
		id, err := cidutil.Parse(cfg.Checkpoint.Restore)
		if err != nil {
			return fmt.Errorf("checkpoint.restore: %w", err)
		}
		if err := a.RestoreCheckpoint(ctx, cas, id); err != nil {
			return err
		}
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPC.Listen)
	if err != nil {
		return err
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryLogger(logger.With("component", "rpc"))))
	srv := a.RPCServer()
	rpc.RegisterQueryServer(gs, srv)
	rpc.RegisterTransactServer(gs, srv)

	hs := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           newOpsRouter(a, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc listening", "addr", grpcLis.Addr().String())
		return gs.Serve(grpcLis)
	})
	g.Go(func() error {
		logger.Info("http listening", "addr", hs.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		gs.GracefulStop()
		return hs.Shutdown(shutdownCtx)
	})
	serveErr := g.Wait()

	// Checkpoint even when a listener failed; the state is still consistent.
	id, err := a.Checkpoint(context.Background(), cas)
	if err != nil {
		return errors.Join(serveErr, fmt.Errorf("final checkpoint: %w", err))
	}
	logger.Info("final checkpoint", "cid", id.String())
	return serveErr
}
