// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *StoreDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL account schema",
		Long: `Apply, roll back or inspect the embedded account schema migrations.
Requires the postgres store; the connection URL comes from --config or
DATABASE_URL.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(deps, func(m Migrator) error {
				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("No pending migrations")
					return nil
				}
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Printf("Applied %d migration(s)\n", len(pending))
				return nil
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  "Roll back the last --steps migrations, or every migration when --steps is 0.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 0 {
				return oops.Code("INVALID_STEPS").Errorf("--steps must not be negative, got %d", steps)
			}
			return withMigrator(deps, func(m Migrator) error {
				if steps == 0 {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("Rolled back all migrations")
					return nil
				}
				if err := m.Steps(-steps); err != nil {
					return err
				}
				cmd.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(deps, func(m Migrator) error {
				return printMigrationStatus(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the database as being at VERSION and clear the dirty flag.
Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(deps, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator loads the store configuration, opens a migrator and runs fn.
func withMigrator(deps *StoreDeps, fn func(Migrator) error) error {
	deps = deps.withDefaults()

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Options{Path: path, Scope: config.ScopeStore})
	if err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}
	if cfg.Store.Driver != config.DriverPostgres {
		return oops.Code("CONFIG_INVALID").
			With("key", "store.driver").
			Errorf("migrations apply to the postgres store only, got %q", cfg.Store.Driver)
	}

	m, err := deps.MigratorFactory(cfg.Store.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		_ = m.Close() //nolint:errcheck // command result takes precedence
	}()
	return fn(m)
}

func printMigrationStatus(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, err := m.AppliedMigrations()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	state := "clean"
	if dirty {
		state = "dirty"
	}
	cmd.Printf("Current version: %d (%s)\n", version, state)
	cmd.Printf("Applied: %s\n", describeMigrations(applied))
	cmd.Printf("Pending: %s\n", describeMigrations(pending))
	return nil
}

func describeMigrations(versions []uint) string {
	if len(versions) == 0 {
		return "none"
	}
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// parseForceVersion parses the VERSION argument of migrate force. Parsing
// stops at the first non-digit, so "3abc" is 3.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("invalid version %q: must be an integer", s)
	}
	return version, nil
}
