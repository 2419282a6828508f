// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gamedock/gamedock/internal/module"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate the module manifest JSON Schema",
		Long: `Generate the JSON Schema that module.yaml manifests are validated
against. Prints to stdout by default; --out writes a file instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := module.GenerateSchema()
			if err != nil {
				return err
			}

			if outPath == "" {
				cmd.Println(string(schema))
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, schema, 0o600); err != nil {
				return err
			}
			cmd.Printf("Generated %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write the schema to this file instead of stdout")
	return cmd
}
