// Package mcp exposes conversations as a Model Context Protocol server,
// so AI agents can drive scripted dialogues as tools.
//
// Sessions are server-side: each tool call names a session_id, and the
// conversation is hydrated from the session store under its lock, the
// same model as the HTTP adapter.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/runner"
	"github.com/aretw0/parley/pkg/script"
	"github.com/aretw0/parley/pkg/session"
)

// TurnResponse is the structured result of the conversation tools.
type TurnResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"The session this turn belongs to"`
	State     string `json:"state" jsonschema_description:"The state the conversation is in after the turn"`
	Reply     string `json:"reply" jsonschema_description:"What the agent says"`
}

// Server wraps a compiled script and a session manager as an MCP server.
type Server struct {
	script    *script.Script
	sessions  *session.Manager
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	fallback  string
	useFall   bool
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHooks wires lifecycle hooks into every hydrated engine.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithMannerFallback forwards a parting-line fallback to the engine.
func WithMannerFallback(text string) Option {
	return func(s *Server) {
		s.fallback = text
		s.useFall = true
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sc *script.Script, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		script:    sc,
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("parley-mcp", parley.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withBot hydrates an engine from the stored snapshot, runs fn on it
// and persists the result, all under the session lock.
func (s *Server) withBot(ctx context.Context, sessionID string, fn func(*parley.Bot) error) error {
	return s.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		store := s.sessions.Store()

		conv, err := store.Load(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}

		opts := []parley.Option{
			parley.WithLogger(s.logger),
			parley.WithLifecycleHooks(s.hooks),
			parley.WithSessionID(sessionID),
		}
		if s.useFall {
			opts = append(opts, parley.WithMannerFallback(s.fallback))
		}
		if conv != nil {
			opts = append(opts, parley.WithConversation(conv))
		}

		bot, err := parley.New(s.script, opts...)
		if err != nil {
			return fmt.Errorf("hydrating session %q: %w", sessionID, err)
		}

		if err := fn(bot); err != nil {
			return err
		}
		return store.Save(ctx, sessionID, bot.Snapshot())
	})
}

func (s *Server) registerTools() {
	respondTool := mcp.NewTool("respond",
		mcp.WithDescription("Send a message to the conversation and get the scripted reply. Creates the session on first use."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user message")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(respondTool, mcp.NewStructuredToolHandler(s.handleRespond))

	gotoTool := mcp.NewTool("go_to_state",
		mcp.WithDescription("Force the conversation into a named state and get its entry prompt. The default state and undeclared states are rejected."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Target state name")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(gotoTool, mcp.NewStructuredToolHandler(s.handleGoTo))

	finishTool := mcp.NewTool("finish",
		mcp.WithDescription("End the conversation with a named manner. The reply is the parting line and the session resets to the default state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
		mcp.WithString("manner", mcp.Required(), mcp.Description("Finish manner name")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(finishTool, mcp.NewStructuredToolHandler(s.handleFinish))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Inspect the stored conversation snapshot of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := request.GetString("session_id", "")
		if sessionID == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		conv, err := s.sessions.Load(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(conv)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Delete the stored conversation so the next message starts fresh at the default state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := request.GetString("session_id", "")
		if sessionID == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("session %q reset", sessionID)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("describe_script",
		mcp.WithDescription("Get the script's states, rules, tags and finish manners for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.script.Describe())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleRespond(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, _ := args["session_id"].(string)
	message, _ := args["message"].(string)
	if sessionID == "" {
		return TurnResponse{}, fmt.Errorf("session_id is required")
	}

	clean, err := runner.SanitizeInput(message)
	if err != nil {
		s.logger.Warn("mcp respond: input rejected", "err", err, "size", len(message))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	var resp TurnResponse
	err = s.withBot(ctx, sessionID, func(bot *parley.Bot) error {
		reply, err := bot.Respond(ctx, clean)
		if err != nil {
			return err
		}
		resp = TurnResponse{SessionID: sessionID, State: bot.Current(), Reply: reply}
		return nil
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("respond failed: %w", err)
	}
	return resp, nil
}

func (s *Server) handleGoTo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, _ := args["session_id"].(string)
	state, _ := args["state"].(string)
	if sessionID == "" || state == "" {
		return TurnResponse{}, fmt.Errorf("session_id and state are required")
	}

	var resp TurnResponse
	err := s.withBot(ctx, sessionID, func(bot *parley.Bot) error {
		prompt, err := bot.GoToState(ctx, state)
		if err != nil {
			return err
		}
		resp = TurnResponse{SessionID: sessionID, State: bot.Current(), Reply: prompt}
		return nil
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("go_to_state failed: %w", err)
	}
	return resp, nil
}

func (s *Server) handleFinish(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, _ := args["session_id"].(string)
	manner, _ := args["manner"].(string)
	if sessionID == "" || manner == "" {
		return TurnResponse{}, fmt.Errorf("session_id and manner are required")
	}

	var resp TurnResponse
	err := s.withBot(ctx, sessionID, func(bot *parley.Bot) error {
		parting, err := bot.Finish(ctx, manner)
		if err != nil {
			return err
		}
		resp = TurnResponse{SessionID: sessionID, State: bot.Current(), Reply: parting}
		return nil
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("finish failed: %w", err)
	}
	return resp, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("parley://script", "Current Script Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.script.Describe())
		if err != nil {
			return nil, fmt.Errorf("failed to describe script: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "parley://script",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
