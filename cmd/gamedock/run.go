// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gamedock/gamedock/internal/bridge"
	"github.com/gamedock/gamedock/internal/config"
	"github.com/gamedock/gamedock/internal/logging"
	"github.com/gamedock/gamedock/internal/module"
	"github.com/gamedock/gamedock/internal/module/binhost"
	"github.com/gamedock/gamedock/internal/module/luahost"
	"github.com/gamedock/gamedock/internal/observability"
	"github.com/gamedock/gamedock/internal/xdg"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the host: load all modules and serve until interrupted",
		Long: `Run the host process. Modules are discovered, built where stale,
and loaded; the host then stays up with its message bridge and
observability endpoints until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, cmd)
		},
	}
	addConfigFlags(cmd)
	return cmd
}

// runHost is the host main loop.
func runHost(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault("gamedock", version, cfg.LogFormat)

	slog.Info("starting host",
		"modules_dir", cfg.ModulesDir,
		"log_format", cfg.LogFormat,
	)

	if err := xdg.EnsureDir(cfg.ModulesDir); err != nil {
		return fmt.Errorf("failed to create modules directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Readiness flips once the first load pass completes.
	var ready atomic.Bool

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, ready.Load)
		metrics = obsServer.Metrics()
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	loader, err := newLoader(cfg, metrics)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if closeErr := loader.Close(shutdownCtx); closeErr != nil {
			slog.Warn("error closing module hosts", "error", closeErr)
		}
	}()

	msgBridge := bridge.New(bridge.WithMetrics(metrics))
	// The host keeps a mirror tap on the bridge so every message is
	// observable in the logs even before any session subscribes.
	msgBridge.Subscribe(func(msg modsdk.Message) {
		slog.Debug("bridge message", "function", msg.Function())
	})

	// The load pass runs on a background worker; the main goroutine only
	// waits on signals.
	errChan := make(chan error, 1)
	go func() {
		result, loadErr := loader.LoadAll(ctx)
		if loadErr != nil {
			errChan <- loadErr
			return
		}
		for _, f := range result.Failures {
			cmd.PrintErrf("warning: module %s failed to load: %s\n", f.Name, f.Reason)
		}
		ready.Store(true)
		cmd.Printf("Loaded %d modules (%d failed)\n", len(result.Loaded), len(result.Failures))
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		return fmt.Errorf("load pass failed: %w", err)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// newLoader wires the discovery/build/load pipeline from configuration.
func newLoader(cfg *config.Config, metrics *observability.Metrics) (*module.Loader, error) {
	scanner, err := module.NewScanner(cfg.ModulesDir, module.WithIgnorePatterns(cfg.IgnorePatterns))
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	builder := module.NewBuilder(module.WithBuildTimeout(cfg.BuildTimeout))
	registry := module.NewRegistry()

	opts := []module.LoaderOption{
		module.WithHost(module.TypeBinary, binhost.NewHost()),
		module.WithHost(module.TypeLua, luahost.NewHost()),
	}
	if metrics != nil {
		opts = append(opts, module.WithMetrics(metrics))
	}

	return module.NewLoader(scanner, builder, registry, opts...), nil
}

// monitorServerErrors cancels the run context when a background server
// fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
