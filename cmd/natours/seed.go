// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/seed"
)

// Default values for seed command flags.
const (
	defaultSeedTimeout = 30 * time.Second
	defaultSeedFile    = "dev-data/users.yaml"
)

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
	file    string
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return newSeedCmd(nil)
}

func newSeedCmd(deps *StoreDeps) *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load or remove development accounts",
		Long: `Import accounts from a YAML or JSON seed file, or delete every
account from the configured store. Intended for development databases.`,
	}
	cmd.PersistentFlags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import accounts from a seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedImport(cmd, cfg, deps)
		},
	}
	importCmd.Flags().StringVarP(&cfg.file, "file", "f", defaultSeedFile, "seed file to import")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedDelete(cmd, cfg, deps)
		},
	})

	return cmd
}

func runSeedImport(cmd *cobra.Command, cfg *seedConfig, deps *StoreDeps) error {
	f, err := seed.LoadFile(cfg.file)
	if err != nil {
		return err
	}

	return withImporter(cmd, cfg, deps, func(ctx context.Context, importer *seed.Importer) error {
		n, err := importer.Import(ctx, f)
		if err != nil {
			return err
		}
		slog.Info("seed data imported", "file", cfg.file, "accounts", n)
		cmd.Printf("Imported %d account(s) from %s\n", n, cfg.file)
		return nil
	})
}

func runSeedDelete(cmd *cobra.Command, cfg *seedConfig, deps *StoreDeps) error {
	return withImporter(cmd, cfg, deps, func(ctx context.Context, importer *seed.Importer) error {
		n, err := importer.Delete(ctx)
		if err != nil {
			return err
		}
		slog.Info("seed data deleted", "accounts", n)
		cmd.Printf("Deleted %d account(s)\n", n)
		return nil
	})
}

// withImporter opens the configured store, builds an importer with the
// configured hashing cost and runs fn under the command timeout.
func withImporter(cmd *cobra.Command, cfg *seedConfig, deps *StoreDeps, fn func(context.Context, *seed.Importer) error) error {
	deps = deps.withDefaults()

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	appCfg, err := config.Load(config.Options{Path: path, Scope: config.ScopeStore})
	if err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	backend, err := deps.BackendOpener(ctx, appCfg)
	if err != nil {
		return oops.Wrapf(err, "open account store")
	}
	defer func() {
		if closeErr := backend.Close(context.WithoutCancel(ctx)); closeErr != nil {
			slog.Warn("error closing account store", "error", closeErr)
		}
	}()

	importer := seed.NewImporter(backend.Accounts, auth.NewArgon2idHasher(appCfg.Auth.HashParams()))
	return fn(ctx, importer)
}
