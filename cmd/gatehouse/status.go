// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/control"
)

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of a running gatehouse process",
		Long:  `Dial the control endpoint of a running gatehouse process and report its health.`,
		RunE:  runStatus,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	status, err := control.CheckHealth(cmd.Context(), cfg.Server.ControlAddr, 3*time.Second)
	if err != nil {
		cmd.Printf("gatehouse: unreachable at %s\n", cfg.Server.ControlAddr)
		return err
	}

	cmd.Printf("gatehouse: %s\n", status)
	return nil
}
