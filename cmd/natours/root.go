// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/natours/natours/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the natours CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "natours",
		Short: "Natours - account and authentication server",
		Long: `Natours serves the account API: sign-up, login, JSON Web Token
sessions, role checks and password recovery by email.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/natours/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewValidateSeedsCmd())

	return cmd
}

// resolveConfigPath returns --config, or the XDG config file when the flag
// is unset and that file exists.
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	path, err := xdg.DefaultConfigFile()
	if err != nil {
		return "", oops.Code("CONFIG_LOAD_FAILED").With("operation", "locate default config").Wrap(err)
	}
	return path, nil
}
