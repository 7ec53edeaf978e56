// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/mail"
	"github.com/natours/natours/internal/observability"
	"github.com/natours/natours/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendOpener connects the account store selected by the config.
	// Default: openBackend with store.NewMigrator
	BackendOpener func(ctx context.Context, cfg *config.Config) (*accountBackend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// SenderFactory creates the mail sender for the configured provider.
	// Default: mail.NewSender
	SenderFactory func(cfg mail.Config, logger *slog.Logger) (mail.Sender, error)

	// ListenerFactory creates the HTTP listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// OnReady is called with the bound HTTP address once the server accepts
	// connections. Optional.
	OnReady func(addr string)
}

// StoreDeps contains injectable dependencies for the migrate and seed commands.
type StoreDeps struct {
	// BackendOpener connects the account store selected by the config.
	// Default: openBackend with store.NewMigrator
	BackendOpener func(ctx context.Context, cfg *config.Config) (*accountBackend, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

func newStoreMigrator(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.BackendOpener == nil {
		d.BackendOpener = func(ctx context.Context, cfg *config.Config) (*accountBackend, error) {
			return openBackend(ctx, cfg, newStoreMigrator)
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.SenderFactory == nil {
		d.SenderFactory = mail.NewSender
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return d
}

func (d *StoreDeps) withDefaults() *StoreDeps {
	if d == nil {
		d = &StoreDeps{}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = newStoreMigrator
	}
	if d.BackendOpener == nil {
		factory := d.MigratorFactory
		d.BackendOpener = func(ctx context.Context, cfg *config.Config) (*accountBackend, error) {
			return openBackend(ctx, cfg, factory)
		}
	}
	return d
}
