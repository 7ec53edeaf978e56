// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/seed"
)

// NewValidateSeedsCmd creates the validate-seeds subcommand.
func NewValidateSeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-seeds [FILE...]",
		Short: "Validate seed files without touching a database",
		Long: `Validates seed files against the seed schema and the account rules.
Does NOT start the server or require a database connection.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch seed errors early:
  natours validate-seeds dev-data/users.yaml`,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{defaultSeedFile}
			}
			return runValidateSeeds(args)
		},
	}
}

func runValidateSeeds(paths []string) error {
	// Plaintext passwords are hashed while building accounts; validation
	// only needs the cheapest cost.
	importer := seed.NewImporter(nil, auth.NewArgon2idHasher(auth.HashParams{Time: 1, Memory: 1024, Threads: 1}))

	var errors []string
	total := 0
	for _, path := range paths {
		f, err := seed.LoadFile(path)
		if err == nil {
			_, err = importer.Accounts(f)
		}
		if err != nil {
			errors = append(errors, fmt.Sprintf("  %s: %v", path, err))
			continue
		}
		total += len(f.Users)
	}

	if len(errors) > 0 {
		for _, e := range errors {
			slog.Error("seed validation failed", "detail", e)
		}
		return fmt.Errorf("validation failed: %d of %d seed files invalid", len(errors), len(paths))
	}

	slog.Info("all seed files valid", "files", len(paths), "accounts", total)
	return nil
}
