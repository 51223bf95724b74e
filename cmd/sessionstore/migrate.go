package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoBetterAuth/session-store/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the sessions table",
}

func noAutoMigrate(cfg *models.Config) {
	cfg.Store.AutoMigrate = false
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create the sessions table",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore(cmd, noAutoMigrate)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.CreateTable(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sessions table ready (data column %q)\n", store.Config.Store.DataColumn)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the sessions table",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore(cmd, noAutoMigrate)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DropTable(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sessions table dropped")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration state and data column capacity",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore(cmd, noAutoMigrate)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		statuses, err := store.MigrationStatus(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, status := range statuses {
			state := "pending"
			if status.Applied {
				state = "applied " + status.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%d\t%s\n", status.Version, state)
		}

		exists, err := store.TableExists(ctx)
		if err != nil || !exists {
			return err
		}
		limit, err := store.DataColumnLimit(ctx)
		if err != nil {
			return err
		}
		if limit == 0 {
			fmt.Fprintf(out, "data column %q: unbounded\n", store.Config.Store.DataColumn)
		} else {
			fmt.Fprintf(out, "data column %q: %d bytes\n", store.Config.Store.DataColumn, limit)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
