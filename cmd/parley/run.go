package main

import (
	"github.com/aretw0/parley/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive conversation",
	Long:  `Starts a conversation with the given script on the terminal. Type 'exit' or 'quit' to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Execute(runOptionsFromFlags(cmd, args))
	},
}

func runOptionsFromFlags(cmd *cobra.Command, args []string) cli.RunOptions {
	flags := cmd.Flags()
	str := func(name string) string { v, _ := flags.GetString(name); return v }
	boolean := func(name string) bool { v, _ := flags.GetBool(name); return v }

	return cli.RunOptions{
		ScriptPath:     scriptArg(cmd, args),
		Headless:       boolean("headless"),
		Watch:          boolean("watch"),
		JSON:           boolean("json"),
		Debug:          boolean("debug"),
		LogFormat:      str("log-format"),
		Strict:         boolean("strict"),
		SessionID:      str("session"),
		Fresh:          boolean("fresh"),
		Store:          str("store"),
		StateDir:       str("state-dir"),
		RedisAddr:      str("redis-addr"),
		MannerFallback: str("manner-fallback"),
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run without banner or markdown rendering (plain IO)")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().BoolP("watch", "w", false, "Run in development mode with hot-reload")
	runCmd.Flags().Bool("strict", false, "Fail on script validation warnings instead of logging them")
	runCmd.Flags().String("session", "", "Session ID for a resumable conversation")
	runCmd.Flags().Bool("fresh", false, "Discard any stored conversation for the session before starting")
	runCmd.Flags().String("store", "file", "Session store: 'file', 'memory' or 'redis'")
	runCmd.Flags().String("state-dir", "", "Directory for the file store (default .parley/sessions)")
	runCmd.Flags().String("redis-addr", "", "Redis address for the redis store (default localhost:6379)")
	runCmd.Flags().String("manner-fallback", "", "Parting line used when a finish manner is not declared")

	// Make 'run' the default when no command is provided.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
