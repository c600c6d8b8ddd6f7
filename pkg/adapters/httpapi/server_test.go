package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/script"
	"github.com/aretw0/parley/pkg/session"
)

func supportScript(t *testing.T) *script.Script {
	t.Helper()

	b := script.New("support").Default("waiting")
	b.Tag("problem", "problem")
	b.Tag("hello", "greeting")
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
		t.Fatalf("Failed to build script: %v", err)
	}
	return sc
}

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	mgr := session.NewManager(memory.NewStore())
	return NewServer(supportScript(t), mgr, opts...).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestServer_RespondCreatesSession(t *testing.T) {
	handler := newTestServer(t, WithSpeaker("Support"))

	w := doJSON(t, handler, "POST", "/sessions/s1/respond", map[string]string{"message": "I have a problem"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp TurnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp.SessionID != "s1" || resp.State != "diagnose" {
		t.Errorf("Unexpected turn response: %+v", resp)
	}
	if resp.Reply != "What seems broken?" {
		t.Errorf("Expected entry prompt, got %q", resp.Reply)
	}
	if resp.Speaker != "Support" {
		t.Errorf("Expected speaker label, got %q", resp.Speaker)
	}

	// The snapshot must have been persisted.
	w = doJSON(t, handler, "GET", "/sessions/s1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for stored session, got %d", w.Code)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatalf("Invalid conversation JSON: %v", err)
	}
	if conv.Current != "diagnose" {
		t.Errorf("Expected persisted state 'diagnose', got %q", conv.Current)
	}
}

func TestServer_RespondFinishResets(t *testing.T) {
	handler := newTestServer(t)

	doJSON(t, handler, "POST", "/sessions/s1/respond", map[string]string{"message": "problem"})
	w := doJSON(t, handler, "POST", "/sessions/s1/respond", map[string]string{"message": "still a problem"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp TurnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp.State != "waiting" {
		t.Errorf("Expected finish to reset to 'waiting', got %q", resp.State)
	}
	if resp.Reply != "Glad we sorted it out." {
		t.Errorf("Expected parting line, got %q", resp.Reply)
	}
}

func TestServer_GoTo(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, "POST", "/sessions/s2/goto", map[string]string{"state": "diagnose"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "What seems broken?") {
		t.Errorf("Expected entry prompt, got %s", w.Body.String())
	}

	// The default state is only reachable through finish.
	w = doJSON(t, handler, "POST", "/sessions/s2/goto", map[string]string{"state": "waiting"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for default state target, got %d", w.Code)
	}

	w = doJSON(t, handler, "POST", "/sessions/s2/goto", map[string]string{"state": "nothere"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for undeclared state, got %d", w.Code)
	}

	w = doJSON(t, handler, "POST", "/sessions/s2/goto", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing state, got %d", w.Code)
	}
}

func TestServer_Finish(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, "POST", "/sessions/s3/finish", map[string]string{"manner": "confused"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp TurnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp.State != "waiting" || resp.Reply != "Sorry, I did not follow." {
		t.Errorf("Unexpected finish response: %+v", resp)
	}

	w = doJSON(t, handler, "POST", "/sessions/s3/finish", map[string]string{"manner": "nope"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for unknown manner, got %d", w.Code)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	handler := newTestServer(t)

	doJSON(t, handler, "POST", "/sessions/a/respond", map[string]string{"message": "problem"})
	doJSON(t, handler, "POST", "/sessions/b/respond", map[string]string{"message": "problem"})

	w := doJSON(t, handler, "GET", "/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var listing map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("Invalid listing JSON: %v", err)
	}
	if len(listing["sessions"]) != 2 {
		t.Errorf("Expected 2 sessions, got %v", listing["sessions"])
	}

	w = doJSON(t, handler, "DELETE", "/sessions/a", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}

	w = doJSON(t, handler, "GET", "/sessions/a", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestServer_RespondRejectsOversizedInput(t *testing.T) {
	handler := newTestServer(t)

	big := strings.Repeat("a", 5000)
	w := doJSON(t, handler, "POST", "/sessions/s1/respond", map[string]string{"message": big})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized input, got %d", w.Code)
	}
}

func TestServer_DescribeScript(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, "GET", "/script", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var info script.Info
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("Invalid info JSON: %v", err)
	}
	if info.Name != "support" || info.Default != "waiting" {
		t.Errorf("Unexpected script info: %+v", info)
	}
}

func TestServer_ScriptGraph(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, "GET", "/script/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "graph TD") {
		t.Errorf("Expected Mermaid output, got %s", w.Body.String())
	}
}

func TestServer_HealthAndInfo(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, "GET", "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected health response: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, "GET", "/info", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "parley-http") {
		t.Errorf("Unexpected info response: %d %s", w.Code, w.Body.String())
	}
}

type watchOnce struct {
	events []string
}

func (w *watchOnce) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, len(w.events))
	for _, e := range w.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func TestServer_Events_Watch(t *testing.T) {
	handler := newTestServer(t, WithWatcher(&watchOnce{events: []string{"waiting.md"}}))

	req := httptest.NewRequest("GET", "/events", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: ping") {
		t.Error("Expected ping event")
	}
	if !strings.Contains(body, "data: waiting.md") {
		t.Errorf("Expected reload data, got %s", body)
	}
}

func TestServer_Events_NoWatcher(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest("GET", "/events", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501 without watcher, got %d", w.Code)
	}
}

func TestServer_Events_Session(t *testing.T) {
	handler := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events?session_id=s1", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(wSub, reqSub)
		close(done)
	}()

	// Wait for the subscription to register before producing a turn.
	time.Sleep(100 * time.Millisecond)

	doJSON(t, handler, "POST", "/sessions/s1/respond", map[string]string{"message": "problem"})

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := wSub.Body.String()
	if !strings.Contains(body, "event: ping") {
		t.Error("Expected ping event")
	}
	if !strings.Contains(body, `"state":"diagnose"`) {
		t.Errorf("Expected turn broadcast, got %s", body)
	}
}
