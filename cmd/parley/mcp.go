package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server.
This lets AI agents drive scripted conversations as tools, one session per session_id.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		transport, _ := flags.GetString("transport")
		port, _ := flags.GetInt("port")
		storeKind, _ := flags.GetString("store")
		stateDir, _ := flags.GetString("state-dir")
		redisAddr, _ := flags.GetString("redis-addr")
		debug, _ := flags.GetBool("debug")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		bot, err := parley.Open(scriptArg(cmd, args), parley.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}

		sessions, err := buildSessionManager(storeKind, stateDir, redisAddr, logger)
		if err != nil {
			return fmt.Errorf("setting up session store: %w", err)
		}

		srv := mcp.NewServer(bot.Script(), sessions, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("starting mcp server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("starting mcp server (sse)", "port", port)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				return err
			}
			logger.Info("mcp server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (expected stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("store", "memory", "Session store: 'memory', 'file' or 'redis'")
	mcpCmd.Flags().String("state-dir", "", "Directory for the file store (default .parley/sessions)")
	mcpCmd.Flags().String("redis-addr", "", "Redis address for the redis store (default localhost:6379)")
}
