package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a tag driven conversational agent engine",
	Long:  `Parley runs scripted conversations: messages are matched against a tag table and a state machine decides what the agent says next.`,

	// Errors out of RunE are printed once by Execute, without the
	// usage dump.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on any command error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// scriptArg resolves the script path: a positional argument wins over
// the --script default, an explicit --script wins over both.
func scriptArg(cmd *cobra.Command, args []string) string {
	path, _ := cmd.Flags().GetString("script")
	if !cmd.Flags().Changed("script") && len(args) > 0 {
		path = args[0]
	}
	return path
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("script", "s", ".", "Script file (.yaml/.json) or directory")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: 'text' or 'json'")
}
