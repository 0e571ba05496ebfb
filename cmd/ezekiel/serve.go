package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MarsStirner/ezekiel/internal/auth"
	"github.com/MarsStirner/ezekiel/internal/config"
	"github.com/MarsStirner/ezekiel/internal/gateway"
	"github.com/MarsStirner/ezekiel/internal/locks"
	"github.com/MarsStirner/ezekiel/internal/logging"
	"github.com/MarsStirner/ezekiel/internal/metrics"
	"github.com/MarsStirner/ezekiel/internal/relay"
)

// buildServeCmd creates the "serve" command that starts the gateway server.
func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ezekiel locking service",
		Long: `Start the ezekiel locking service.

The server will:
1. Load configuration from the specified file (or ezekiel.yaml) and watch it for changes
2. Wire the configured auth adapter, metrics, and release relay
3. Serve the REST, WebSocket, and SSE surfaces on the configured address

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  ezekiel serve

  # Start with a specific config file
  ezekiel serve --config /etc/ezekiel/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ezekiel.yaml", "Path to YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting ezekiel", "version", version, "commit", commit, "config", configPath)

	m := metrics.NewMetrics()

	var r locks.Relay
	if cfg.Relay.RedisAddr != "" {
		r = relay.NewRedis(cfg.Relay.RedisAddr, cfg.Relay.Channel)
	} else {
		r = relay.Noop{}
	}

	manager := locks.New(
		locks.WithShortTimeout(cfg.Lock.ShortTimeout.Std()),
		locks.WithLongTimeout(cfg.Lock.LongTimeout.Std()),
		locks.WithObserver(m),
		locks.WithRelay(r),
		locks.WithLogger(logger),
	)

	authenticator := auth.NewHMACAuthenticator(cfg.Auth.HMACSecret, cfg.Auth.CookieName, cfg.Auth.TokenTTL.Std())

	server := gateway.New(cfg, manager, authenticator, m, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	watcher, err := config.NewWatcher(configPath, logger, func(*config.Config) {
		logger.Info("config change detected; restart to apply it")
	})
	if err == nil {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("config watcher not started", "error", err)
	}

	logger.Info("ezekiel started", "addr", cfg.Server.HTTPAddr)

	<-ctx.Done()
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("ezekiel stopped gracefully")
	return nil
}
