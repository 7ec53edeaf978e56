// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/httpapi"
	"github.com/natours/natours/internal/logging"
	"github.com/natours/natours/internal/mail"
	"github.com/natours/natours/internal/observability"
)

const serviceName = "natours"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account API server",
		Long: `Start the HTTP server for sign-up, login, sessions and password
recovery. Configuration is read from --config, then flags, then the
NATOURS_JWT_SECRET, DATABASE_URL and MONGODB_URI environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runServeWithDeps starts the API server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Options{Path: path, Flags: cmd.Flags()})
	if err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.SlogLevel())
	logger.Info("starting natours",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"store", cfg.Store.Driver,
		"mail_provider", cfg.Mail.Provider,
	)

	backend, err := deps.BackendOpener(ctx, cfg)
	if err != nil {
		return oops.Wrapf(err, "open account store")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if closeErr := backend.Close(closeCtx); closeErr != nil {
			slog.Warn("error closing account store", "error", closeErr)
		}
	}()
	slog.Info("account store ready", "driver", backend.Driver)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics are recorded into the observability registry when the endpoint
	// is enabled, and into a private registry otherwise.
	metrics := observability.NewMetrics(observability.NewRegistry())
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ping)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Wrapf(startErr, "start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		if m := obsServer.Metrics(); m != nil {
			metrics = m
		}
		slog.Info("observability server started", "addr", obsServer.Addr())
	}
	defer func() {
		if obsServer == nil {
			return
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
			slog.Warn("error stopping observability server", "error", stopErr)
		}
	}()

	svc, err := newAuthService(cfg, deps, backend, metrics, logger)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := httpapi.NewRouter(svc, httpapi.Options{
		Logger:         logger,
		Production:     cfg.IsProduction(),
		PublicURL:      cfg.Server.PublicURL,
		CookieTTL:      cfg.Auth.CookieTTL(),
		BodyLimit:      cfg.Server.BodyLimit,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		TrustedProxies: cfg.Server.TrustedProxies,
		Metrics:        metrics,
	})
	if err != nil {
		return oops.Wrapf(err, "build router")
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("natours listening on", listener.Addr().String())
	slog.Info("natours ready", "addr", listener.Addr().String())
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr().String())
	}

	// Wait for shutdown signal or error
	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		slog.Error("HTTP server error, shutting down", "error", serveErr)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error shutting down HTTP server", "error", err)
	}
	// Let in-flight welcome mails finish before the store closes.
	svc.Wait()

	slog.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	}
	return nil
}

// newAuthService wires the mail sender, hasher and token service into an
// auth.Service.
func newAuthService(cfg *config.Config, deps *ServeDeps, backend *accountBackend, events auth.EventRecorder, logger *slog.Logger) (*auth.Service, error) {
	sender, err := deps.SenderFactory(cfg.Mail, logger)
	if err != nil {
		return nil, oops.Wrapf(err, "create mail sender")
	}
	notifier, err := mail.NewNotifier(sender, cfg.Mail.FromAddress())
	if err != nil {
		return nil, oops.Wrapf(err, "create notifier")
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, oops.Wrapf(err, "create token service")
	}

	svc, err := auth.NewService(auth.Deps{
		Accounts: backend.Accounts,
		Hasher:   auth.NewArgon2idHasher(cfg.Auth.HashParams()),
		Tokens:   tokens,
		Notifier: notifier,
		Logger:   logger,
		Events:   events,
	}, auth.Config{
		Lockout:            cfg.Auth.Lockout(),
		ResetTokenTTL:      cfg.Auth.ResetTokenTTL,
		WelcomeMailTimeout: cfg.Auth.WelcomeMailTimeout,
	})
	if err != nil {
		return nil, oops.Wrapf(err, "create auth service")
	}
	return svc, nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
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
