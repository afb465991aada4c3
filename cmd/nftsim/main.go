// nftsim runs the token approval scenarios or serves the RPC API of a
// simulated ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alphabill-org/alphabill-nft/config"
	"github.com/alphabill-org/alphabill-nft/rpc"
	"github.com/alphabill-org/alphabill-nft/sandbox"
	"github.com/alphabill-org/alphabill-nft/tracing"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd, err := parseCommandLine(args, out)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cmd.global.ConfigFile)
	if err != nil {
		return err
	}
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	if cmd.global.TraceFile != "" {
		if err := tracing.Init("nftsim", version, cmd.global.TraceFile); err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
	}

	switch cmd.name {
	case scenarioSubCmd:
		return runScenarios(ctx, cmd.scenario, cfg, log, out)
	case serveSubCmd:
		return serve(ctx, cmd.serve, cfg, log)
	default:
		return fmt.Errorf("unknown command %q", cmd.name)
	}
}

func sandboxOptions(cfg *config.Config, log *slog.Logger) ([]sandbox.Option, error) {
	ac, err := cfg.ApprovalsConfig()
	if err != nil {
		return nil, err
	}
	return []sandbox.Option{
		sandbox.WithApprovalsConfig(ac),
		sandbox.WithRuntimeConfig(cfg.RuntimeConfig()),
		sandbox.WithLogger(log),
	}, nil
}

func runScenarios(ctx context.Context, sc *scenarioConfig, cfg *config.Config, log *slog.Logger, out io.Writer) error {
	if sc.List {
		for _, s := range sandbox.Scenarios() {
			fmt.Fprintln(out, s.Name)
		}
		return nil
	}
	opts, err := sandboxOptions(cfg, log)
	if err != nil {
		return err
	}
	if sc.Name != "" {
		res, err := sandbox.RunScenario(ctx, sc.Name, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res)
		return nil
	}
	return sandbox.RunScenarios(ctx, out, opts...)
}

func serve(ctx context.Context, sc *serveConfig, cfg *config.Config, log *slog.Logger) error {
	if sc.Listen != "" {
		cfg.RPC.Listen = sc.Listen
	}
	if sc.RedisAddr != "" {
		cfg.RPC.RedisAddr = sc.RedisAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := sandboxOptions(cfg, log)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	sb, err := sandbox.New(append(opts, sandbox.WithStore(store))...)
	if err != nil {
		return err
	}

	rpcOpts := []rpc.Option{rpc.WithLogger(log)}
	if cfg.RPC.RedisAddr != "" {
		rdb, err := rpc.OpenRedis(ctx, cfg.RPC.RedisAddr)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		rpcOpts = append(rpcOpts, rpc.WithIdempotency(rdb, cfg.RPC.IdempotencyTTL))
	}
	srv := rpc.New(sb.Ledger, rpcOpts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.RPC.Listen) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
