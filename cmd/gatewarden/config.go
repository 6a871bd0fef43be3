// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file with the built-in defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}

	cmd.AddCommand(initCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Default()
	if err != nil {
		return err
	}

	out, err := config.RenderYAML(cfg)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		cmd.Print(string(out))
		return nil
	}

	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return oops.Code("CONFIG_EXISTS").
			With("path", path).
			Errorf("refusing to overwrite existing file %s", path)
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}
	cmd.Println("wrote", path)
	return nil
}
