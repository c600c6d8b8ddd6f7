package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/httpapi"
	"github.com/aretw0/parley/pkg/adapters/memory"
	redisstore "github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversation server",
	Long:  `Starts the engine in server mode: conversations live server-side, keyed by session, and are driven over a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		port, _ := flags.GetString("port")
		debug, _ := flags.GetBool("debug")
		logFormat, _ := flags.GetString("log-format")
		storeKind, _ := flags.GetString("store")
		stateDir, _ := flags.GetString("state-dir")
		redisAddr, _ := flags.GetString("redis-addr")
		speaker, _ := flags.GetString("speaker")
		fallback, _ := flags.GetString("manner-fallback")
		withMetrics, _ := flags.GetBool("metrics")

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)
		if logFormat == "json" {
			logger = logging.NewJSON(level)
		}

		sessions, err := buildSessionManager(storeKind, stateDir, redisAddr, logger)
		if err != nil {
			return fmt.Errorf("setting up session store: %w", err)
		}

		scriptPath := scriptArg(cmd, args)
		bot, err := parley.Open(scriptPath, parley.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		if speaker == "" {
			speaker = bot.Name
		}

		srvOpts := []httpapi.Option{
			httpapi.WithLogger(logger),
			httpapi.WithSpeaker(speaker),
		}
		if fallback != "" {
			srvOpts = append(srvOpts, httpapi.WithMannerFallback(fallback))
		}
		if watcher, ok := bot.Loader().(ports.Watchable); ok {
			srvOpts = append(srvOpts, httpapi.WithWatcher(watcher))
		}

		var metrics *observability.Metrics
		if withMetrics {
			metrics = observability.NewMetrics(nil)
			srvOpts = append(srvOpts, httpapi.WithHooks(metrics.Hooks()))
		}

		api := httpapi.NewServer(bot.Script(), sessions, srvOpts...)

		var handler http.Handler = api.Handler()
		if metrics != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/", handler)
			handler = mux
		}

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("parley server listening", "addr", srv.Addr, "script", scriptPath)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
			logger.Info("parley server stopped")
			return nil
		}
	},
}

// buildSessionManager wires the store (and, for redis, a distributed
// lock) behind a session manager. Stores are wrapped with any at-rest
// protections the environment configures.
func buildSessionManager(kind, stateDir, redisAddr string, logger *slog.Logger) (*session.Manager, error) {
	mgrOpts := []session.Option{session.WithLogger(logger)}

	var store ports.ConversationStore
	switch kind {
	case "", "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(stateDir)
	case "redis":
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		store = redisstore.NewFromClient(client)
		locker := redisstore.NewLocker(client, "parley:lock:")
		mgrOpts = append(mgrOpts, session.WithLocker(locker))
	default:
		return nil, fmt.Errorf("unknown store %q (expected file, memory or redis)", kind)
	}

	mw, err := middleware.FromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("configuring store protections: %w", err)
	}
	if mw != nil {
		store = mw(store)
	}

	return session.NewManager(store, mgrOpts...), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("store", "memory", "Session store: 'memory', 'file' or 'redis'")
	serveCmd.Flags().String("state-dir", "", "Directory for the file store (default .parley/sessions)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the redis store (default localhost:6379)")
	serveCmd.Flags().String("speaker", "", "Speaker label on replies (default script name)")
	serveCmd.Flags().String("manner-fallback", "", "Parting line used when a finish manner is not declared")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
}
