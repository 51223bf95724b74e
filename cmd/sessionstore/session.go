package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and remove stored sessions",
	Long:  `Looks sessions up by cookie value. Pass --raw to use the stored session_id instead.`,
}

// storageKey maps the argument to the stored identifier unless --raw is set.
func storageKey(cmd *cobra.Command, keyer interface{ StorageKey(string) string }, arg string) string {
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		return arg
	}
	return keyer.StorageKey(arg)
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <cookie-value>",
	Short: "Print the data of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore(cmd, noAutoMigrate)
		if err != nil {
			return err
		}
		defer store.Close()

		session, err := store.FindBySessionID(cmd.Context(), storageKey(cmd, store, args[0]))
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session not found")
		}

		data := session.Data()
		if loadErr := session.LoadError(); loadErr != nil {
			return loadErr
		}

		out, err := json.MarshalIndent(map[string]any{
			"id":         session.ID,
			"created_at": session.CreatedAt,
			"updated_at": session.UpdatedAt,
			"data":       data,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <cookie-value>...",
	Short: "Remove one or more sessions",
	Long:  `Removes each session that exists and reports how many were found.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore(cmd, noAutoMigrate)
		if err != nil {
			return err
		}
		defer store.Close()

		removed := 0
		for i, arg := range args {
			key := storageKey(cmd, store, arg)
			session, err := store.FindBySessionID(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("failed to look up session #%d: %w", i+1, err)
			}
			if session == nil {
				continue
			}
			if err := store.Destroy(cmd.Context(), key); err != nil {
				return fmt.Errorf("failed to remove session #%d: %w", i+1, err)
			}
			removed++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s)\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.PersistentFlags().Bool("raw", false, "Treat arguments as stored session_id values")
	sessionCmd.AddCommand(sessionShowCmd, sessionRmCmd)
}
