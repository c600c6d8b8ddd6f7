package mcp

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/script"
	"github.com/aretw0/parley/pkg/session"
)

func supportScript(t *testing.T) *script.Script {
	t.Helper()

	b := script.New("support").Default("waiting")
	b.Tag("problem", "problem")
	b.State("waiting").
		Rule("problem", domain.GoTo("diagnose")).
		Else(domain.Finish("confused"))
	b.State("diagnose").
		Prompt("What seems broken?").
		Rule("problem", domain.Finish("solved")).
		Else(domain.Finish("confused"))
	b.Manner("confused", "Sorry, I did not follow.")
	b.Manner("solved", "Glad we sorted it out.")

	sc, err := b.Build()
	if err != nil {
		t.Fatalf("building script: %v", err)
	}
	return sc
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sessions := session.NewManager(memory.NewStore())
	return NewServer(supportScript(t), sessions)
}

func TestHandleRespond(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	resp, err := s.handleRespond(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-1",
		"message":    "my printer has a problem",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if resp.State != "diagnose" {
		t.Errorf("expected state diagnose, got %q", resp.State)
	}
	if resp.Reply != "What seems broken?" {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}
	if resp.SessionID != "sess-1" {
		t.Errorf("expected session echoed back, got %q", resp.SessionID)
	}

	// The snapshot must survive the tool call.
	conv, err := s.sessions.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if conv.Current != "diagnose" {
		t.Errorf("stored conversation in %q, want diagnose", conv.Current)
	}
}

func TestHandleRespond_FinishResetsSession(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()
	args := map[string]interface{}{"session_id": "sess-2", "message": "a problem"}

	if _, err := s.handleRespond(ctx, mcp.CallToolRequest{}, args); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	resp, err := s.handleRespond(ctx, mcp.CallToolRequest{}, args)
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if resp.Reply != "Glad we sorted it out." {
		t.Errorf("expected parting line, got %q", resp.Reply)
	}
	if resp.State != "waiting" {
		t.Errorf("finish should reset to the default state, got %q", resp.State)
	}
}

func TestHandleRespond_RequiresSessionID(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleRespond(t.Context(), mcp.CallToolRequest{}, map[string]interface{}{
		"message": "hello",
	})
	if err == nil {
		t.Fatal("expected an error for a missing session_id")
	}
}

func TestHandleRespond_RejectsOversizedInput(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleRespond(t.Context(), mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-3",
		"message":    strings.Repeat("a", 5000),
	})
	if err == nil || !strings.Contains(err.Error(), "input rejected") {
		t.Fatalf("expected input rejection, got %v", err)
	}
}

func TestHandleGoTo(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	resp, err := s.handleGoTo(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-4",
		"state":      "diagnose",
	})
	if err != nil {
		t.Fatalf("go_to_state: %v", err)
	}
	if resp.State != "diagnose" || resp.Reply != "What seems broken?" {
		t.Errorf("unexpected result: %+v", resp)
	}

	if _, err := s.handleGoTo(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-4",
		"state":      "waiting",
	}); err == nil {
		t.Error("jumping to the default state should fail")
	}

	if _, err := s.handleGoTo(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-4",
		"state":      "nope",
	}); err == nil {
		t.Error("jumping to an undeclared state should fail")
	}
}

func TestHandleFinish(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	resp, err := s.handleFinish(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-5",
		"manner":     "solved",
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if resp.Reply != "Glad we sorted it out." {
		t.Errorf("unexpected parting line: %q", resp.Reply)
	}
	if resp.State != "waiting" {
		t.Errorf("expected reset to waiting, got %q", resp.State)
	}

	if _, err := s.handleFinish(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "sess-5",
		"manner":     "nope",
	}); err == nil {
		t.Error("finishing with an unknown manner should fail")
	}
}
