// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/gamedock/gamedock/internal/config"
	"github.com/gamedock/gamedock/internal/logging"
)

// NewModulesCmd creates the modules subcommand.
func NewModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Run one load pass and list the outcome",
		Long: `Discover, build, and load every module once, print what loaded and
what failed, then tear everything down again. Useful for checking a
modules directory without starting the host.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runModulesPass(cmd, cfg)
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func runModulesPass(cmd *cobra.Command, cfg *config.Config) error {
	logging.SetDefault("gamedock", version, cfg.LogFormat)

	loader, err := newLoader(cfg, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	result, err := loader.LoadAll(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := loader.Close(ctx); closeErr != nil {
			cmd.PrintErrf("warning: failed to close module hosts: %v\n", closeErr)
		}
	}()

	if len(result.Loaded) == 0 && len(result.Failures) == 0 {
		cmd.Println("No modules found in", cfg.ModulesDir)
		return nil
	}

	for _, lm := range result.Loaded {
		meta := lm.Module.Metadata()
		cmd.Printf("loaded  %-20s %s\n", lm.Name, meta.Version)
	}
	for _, f := range result.Failures {
		cmd.Printf("failed  %-20s %s\n", f.Name, f.Reason)
	}
	return nil
}
