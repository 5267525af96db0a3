// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|version|force <version>]",
		Short: "Run database schema migrations",
		Long: `Apply, roll back, or inspect the schema migrations embedded in the
binary. With no action, "up" is assumed.`,
		Args: cobra.MaximumNArgs(2),
		RunE: runMigrate,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	var forceVersion int
	switch action {
	case "up", "down", "version":
	case "force":
		if len(args) < 2 {
			return oops.Code("INVALID_VERSION").Errorf("force requires a version argument")
		}
		forceVersion, err = parseForceVersion(args[1])
		if err != nil {
			return err
		}
	default:
		return oops.Code("INVALID_ACTION").With("action", action).
			Errorf("unknown migrate action")
	}

	migrator, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	switch action {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations applied")
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Migrations rolled back")
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		cmd.Printf("Version: %d (dirty: %t)\n", version, dirty)
	case "force":
		if err := migrator.Force(forceVersion); err != nil {
			return err
		}
		cmd.Printf("Forced version to %d\n", forceVersion)
	}

	return nil
}

// parseForceVersion parses the version argument of "migrate force".
func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Wrap(err)
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("version", version).
			Errorf("version cannot be negative")
	}
	return version, nil
}
