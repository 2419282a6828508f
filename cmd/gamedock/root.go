// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gamedock/gamedock/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the GameDock CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gamedock",
		Short: "GameDock - a host for pluggable game modules",
		Long: `GameDock discovers game modules on disk, builds the ones that need
building, loads them into sandboxed runtimes, and connects them to a
shared message bridge for play sessions.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewModulesCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// addConfigFlags declares the shared host flags with defaults taken
// from the built-in configuration, so unset flags never shadow file
// values.
func addConfigFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().String("modules-dir", def.ModulesDir, "root directory scanned for modules")
	cmd.Flags().String("metrics-addr", def.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", def.LogFormat, "log format (json or text)")
	cmd.Flags().Duration("build-timeout", def.BuildTimeout, "timeout for one module build")
	cmd.Flags().StringSlice("ignore-patterns", def.IgnorePatterns, "directory-name globs discovery skips")
}

// loadConfig merges the config file and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}

// shutdownTimeout bounds graceful teardown of servers and hosts.
const shutdownTimeout = 5 * time.Second
