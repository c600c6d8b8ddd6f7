package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove conversations stored in .parley/sessions.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := getStore(cmd).List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		if len(ids) == 0 {
			cmd.Println("No stored sessions found.")
			return nil
		}
		cmd.Println("Stored Sessions:")
		for _, id := range ids {
			cmd.Println("- " + id)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the stored conversation of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := getStore(cmd).Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading session %q: %w", args[0], err)
		}

		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return fmt.Errorf("rendering session %q: %w", args[0], err)
		}
		cmd.Println(string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [session-id...]",
	Short: "Remove sessions by ID, or every session with --all",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := getStore(cmd)

		ids := args
		if all, _ := cmd.Flags().GetBool("all"); all {
			if len(args) > 0 {
				return errors.New("--all does not take session IDs")
			}
			var err error
			if ids, err = store.List(cmd.Context()); err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
		}
		if len(ids) == 0 {
			return errors.New("nothing to remove: give session IDs or --all")
		}

		var failed int
		for _, id := range ids {
			if err := store.Delete(cmd.Context(), id); err != nil {
				cmd.PrintErrf("could not remove %q: %v\n", id, err)
				failed++
				continue
			}
			cmd.Printf("Removed session %q\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sessions not removed", failed, len(ids))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionCmd.PersistentFlags().String("state-dir", "", "Directory for the file store (default .parley/sessions)")
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}

func getStore(cmd *cobra.Command) *file.Store {
	stateDir, _ := cmd.Flags().GetString("state-dir")
	return file.New(stateDir)
}
