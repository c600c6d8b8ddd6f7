// Package httpapi exposes conversations over a JSON HTTP API.
//
// Unlike the library core, the server is stateful: conversations live in
// a ports.ConversationStore behind a session.Manager, and every request
// that touches a session runs under its lock. The script is compiled
// once and shared; a fresh engine is hydrated per request from the
// stored snapshot.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/runner"
	"github.com/aretw0/parley/pkg/script"
	"github.com/aretw0/parley/pkg/session"
)

// Server hosts one script for many sessions.
type Server struct {
	script   *script.Script
	sessions *session.Manager
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	watcher  ports.Watchable
	speaker  string
	fallback string
	useFall  bool
	streams  *StreamManager
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

// WithWatcher enables script change events on GET /events.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.watcher = w
	}
}

// WithSpeaker labels replies with the given name.
func WithSpeaker(name string) Option {
	return func(s *Server) {
		s.speaker = name
	}
}

// WithMannerFallback forwards a parting-line fallback to the engine.
func WithMannerFallback(text string) Option {
	return func(s *Server) {
		s.fallback = text
		s.useFall = true
	}
}

// NewServer creates a Server for the given script and session manager.
func NewServer(sc *script.Script, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		script:   sc,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Handler builds the chi router for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.health)
	r.Get("/info", s.info)
	r.Get("/script", s.describeScript)
	r.Get("/script/graph", s.scriptGraph)
	r.Get("/events", s.events)

	r.Get("/sessions", s.listSessions)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Delete("/", s.deleteSession)
		r.Post("/respond", s.respond)
		r.Post("/goto", s.goToState)
		r.Post("/finish", s.finish)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type respondRequest struct {
	Message string `json:"message"`
}

type gotoRequest struct {
	State string `json:"state"`
}

type finishRequest struct {
	Manner string `json:"manner"`
}

// TurnResponse is the reply envelope of the mutating endpoints.
type TurnResponse struct {
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker,omitempty"`
	State     string `json:"state"`
	Reply     string `json:"reply"`
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

func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body respondRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("respond: invalid request body", "err", err)
		return
	}

	clean, err := runner.SanitizeInput(body.Message)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn("respond: input rejected", "err", err, "size", len(body.Message))
		return
	}

	var resp TurnResponse
	err = s.withBot(r.Context(), sessionID, func(bot *parley.Bot) error {
		reply, err := bot.Respond(r.Context(), clean)
		if err != nil {
			return err
		}
		resp = TurnResponse{
			SessionID: sessionID,
			Speaker:   s.speaker,
			State:     bot.Current(),
			Reply:     reply,
		}
		return nil
	})
	if err != nil {
		s.writeError(w, "respond", err)
		return
	}

	s.broadcast(sessionID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) goToState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body gotoRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.State == "" {
		http.Error(w, "Invalid request body: state is required", http.StatusBadRequest)
		return
	}

	var resp TurnResponse
	err := s.withBot(r.Context(), sessionID, func(bot *parley.Bot) error {
		prompt, err := bot.GoToState(r.Context(), body.State)
		if err != nil {
			return err
		}
		resp = TurnResponse{
			SessionID: sessionID,
			Speaker:   s.speaker,
			State:     bot.Current(),
			Reply:     prompt,
		}
		return nil
	})
	if err != nil {
		s.writeError(w, "goto", err)
		return
	}

	s.broadcast(sessionID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) finish(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body finishRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Manner == "" {
		http.Error(w, "Invalid request body: manner is required", http.StatusBadRequest)
		return
	}

	var resp TurnResponse
	err := s.withBot(r.Context(), sessionID, func(bot *parley.Bot) error {
		parting, err := bot.Finish(r.Context(), body.Manner)
		if err != nil {
			return err
		}
		resp = TurnResponse{
			SessionID: sessionID,
			Speaker:   s.speaker,
			State:     bot.Current(),
			Reply:     parting,
		}
		return nil
	})
	if err != nil {
		s.writeError(w, "finish", err)
		return
	}

	s.broadcast(sessionID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	conv, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
		s.writeError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, "list sessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) describeScript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.script.Describe())
}

func (s *Server) scriptGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.script.Describe(), nil))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "parley-http",
		"script":  s.script.Name(),
		"version": parley.Version,
	})
}

// events serves SSE. With a session_id query parameter the stream
// carries that session's turns; without one it carries script change
// IDs from the watcher.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.watchEvents(w, r, flusher)
		return
	}

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) watchEvents(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	if s.watcher == nil {
		http.Error(w, "Script source does not support watching", http.StatusNotImplemented)
		return
	}

	events, err := s.watcher.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", id)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcast(sessionID string, resp TurnResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.streams.Broadcast(sessionID, string(payload))
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err)
	}
	http.Error(w, err.Error(), status)
}

// statusFor maps engine errors onto HTTP statuses: missing sessions are
// 404, contract violations the client can cause (bad goto target,
// unknown manner) are 422, anything else is a 500.
func statusFor(err error) int {
	var terr *domain.TransitionError
	var herr *domain.UnboundHookError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &terr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &herr) && herr.Hook == domain.HookCompletion:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
