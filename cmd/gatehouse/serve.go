// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/control"
	"github.com/gatehouse/gatehouse/internal/gate"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gatehouse server",
		Long: `Start the API server, the observability endpoints, and the control
plane; connects to PostgreSQL and optionally applies pending schema
migrations first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, autoMigrate)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending schema migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, autoMigrate bool) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	logging.SetDefault("gatehouse", version, cfg.Log.Format)
	logger := slog.Default()

	slog.Info("starting gatehouse",
		"listen_addr", cfg.Server.ListenAddr,
		"strategy", cfg.Auth.Strategy,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if autoMigrate {
		migrator, err := store.NewMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			migrator.Close() //nolint:errcheck
			return err
		}
		if err := migrator.Close(); err != nil {
			slog.Warn("error closing migrator", "error", err)
		}
		slog.Info("schema migrations applied")
	}

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	users := authpg.NewUserRepository(pool)
	hasher := auth.NewArgon2idHasher()

	authService, err := auth.NewServiceWithLogger(users, hasher, cfg.SessionTTL(), auth.SystemClock(), logger)
	if err != nil {
		return err
	}
	resetService, err := auth.NewPasswordResetServiceWithLogger(users, hasher, logger)
	if err != nil {
		return err
	}

	handler, err := web.NewHandlerWithLogger(authService, resetService, cfg.Auth.SessionCookieName, logger)
	if err != nil {
		return err
	}

	var strategy gate.Strategy
	switch cfg.Auth.Strategy {
	case config.StrategyBasic:
		strategy, err = gate.NewBasicStrategy(users, hasher)
	case config.StrategySession:
		strategy, err = gate.NewSessionStrategy(authService, cfg.Auth.SessionCookieName)
	case config.StrategyNone:
		strategy = nil
	}
	if err != nil {
		return err
	}

	g, err := gate.NewWithLogger(strategy, cfg.Auth.ExemptPaths, logger)
	if err != nil {
		return err
	}

	apiServer, err := web.NewServer(cfg.Server.ListenAddr, g.Wrap(handler.Routes()))
	if err != nil {
		return err
	}

	controlServer := control.NewGRPCServer()
	controlErrCh, err := controlServer.Start(cfg.Server.ControlAddr)
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, controlErrCh, "control")

	obsServer, err := observability.NewServer(cfg.Server.MetricsAddr, func() bool {
		return pool.Ping(ctx) == nil
	})
	if err != nil {
		return err
	}
	obsErrCh, err := obsServer.Start()
	if err != nil {
		stopServers(nil, nil, controlServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServers(nil, obsServer, controlServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	controlServer.SetReady(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Gatehouse started")
	slog.Info("gatehouse ready",
		"api_addr", apiServer.Addr(),
		"metrics_addr", obsServer.Addr(),
		"control_addr", controlServer.Addr(),
	)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	controlServer.SetReady(false)
	slog.Info("shutting down...")

	stopServers(apiServer, obsServer, controlServer)

	slog.Info("shutdown complete")
	return nil
}

// stopServers stops whichever servers are non-nil, in dependency order.
func stopServers(api *web.Server, obs *observability.Server, ctrl *control.GRPCServer) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if api != nil {
		if err := api.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping api server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
	if ctrl != nil {
		if err := ctrl.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping control server", "error", err)
		}
	}
}

// monitorServerErrors cancels the context when a server reports an error.
// It exits when an error arrives, the channel closes, or the context ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
