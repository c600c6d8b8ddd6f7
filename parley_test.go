package parley_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/script"
)

func supportScript(t *testing.T) *script.Script {
	t.Helper()

	b := script.New("support").Default("waiting")
	b.Tag("hello", "greeting")
	b.Tag("broken", "problem")
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

// A script whose second state has neither prompt nor rules, so it can
// neither be entered nor answer.
func flawedScript(t *testing.T) *script.Script {
	t.Helper()

	b := script.New("flawed").Default("waiting")
	b.Tag("hello", "greeting")
	b.State("waiting").
		Rule("greeting", domain.GoTo("limbo")).
		Else(domain.Finish("confused"))
	b.State("limbo")
	b.Manner("confused", "Sorry?")

	sc, err := b.Build()
	if err != nil {
		t.Fatalf("Failed to build script: %v", err)
	}
	return sc
}

func TestNew_PermissiveCollectsWarnings(t *testing.T) {
	bot, err := parley.New(flawedScript(t))
	if err != nil {
		t.Fatalf("Permissive mode must not fail construction: %v", err)
	}

	warnings := bot.Warnings()
	if len(warnings) == 0 {
		t.Fatal("Expected validation warnings for the flawed script")
	}

	joined := strings.Join(warnings, "\n")
	if !strings.Contains(joined, "missing_entry") {
		t.Errorf("Expected a missing_entry warning, got:\n%s", joined)
	}
	if !strings.Contains(joined, "missing_respond") {
		t.Errorf("Expected a missing_respond warning, got:\n%s", joined)
	}
}

func TestNew_StrictFailsConstruction(t *testing.T) {
	_, err := parley.New(flawedScript(t), parley.WithStrict())
	if err == nil {
		t.Fatal("Strict mode must fail construction for a flawed script")
	}
	if !strings.Contains(err.Error(), "failed validation") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNew_CleanScriptHasNoWarnings(t *testing.T) {
	bot, err := parley.New(supportScript(t), parley.WithStrict())
	if err != nil {
		t.Fatalf("A clean script must pass strict construction: %v", err)
	}
	if len(bot.Warnings()) != 0 {
		t.Errorf("Unexpected warnings: %v", bot.Warnings())
	}
}

func TestNew_NilScript(t *testing.T) {
	if _, err := parley.New(nil); err == nil {
		t.Fatal("Expected an error for a nil script")
	}
}

func TestBot_ConversationFlow(t *testing.T) {
	bot, err := parley.New(supportScript(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if bot.Current() != "waiting" {
		t.Fatalf("Expected to start in waiting, got %q", bot.Current())
	}

	reply, err := bot.Respond(ctx, "My printer is broken")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if reply != "What seems broken?" {
		t.Errorf("Expected the diagnose prompt, got %q", reply)
	}
	if bot.Current() != "diagnose" {
		t.Errorf("Expected to move to diagnose, got %q", bot.Current())
	}

	reply, err = bot.Respond(ctx, "still broken")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if reply != "Glad we sorted it out." {
		t.Errorf("Expected the parting line, got %q", reply)
	}
	if bot.Current() != bot.DefaultState() {
		t.Errorf("Finishing must reset to the default state, got %q", bot.Current())
	}

	snap := bot.Snapshot()
	if snap.Current != "waiting" {
		t.Errorf("Snapshot out of sync: %q", snap.Current)
	}
	if len(snap.History) == 0 {
		t.Error("Snapshot should carry the visit history")
	}
}

func TestBot_GoToState(t *testing.T) {
	bot, err := parley.New(supportScript(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	prompt, err := bot.GoToState(ctx, "diagnose")
	if err != nil {
		t.Fatalf("GoToState failed: %v", err)
	}
	if prompt != "What seems broken?" {
		t.Errorf("Expected the entry prompt, got %q", prompt)
	}

	var terr *domain.TransitionError
	if _, err := bot.GoToState(ctx, "waiting"); !errors.As(err, &terr) {
		t.Errorf("Jumping to the default state must fail with a TransitionError, got %v", err)
	}
	if _, err := bot.GoToState(ctx, "nope"); !errors.As(err, &terr) {
		t.Errorf("Jumping to an undeclared state must fail with a TransitionError, got %v", err)
	}
}

func TestBot_Finish(t *testing.T) {
	bot, err := parley.New(supportScript(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	parting, err := bot.Finish(ctx, "solved")
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if parting != "Glad we sorted it out." {
		t.Errorf("Unexpected parting line: %q", parting)
	}

	if _, err := bot.Finish(ctx, "nope"); err == nil {
		t.Error("Finishing with an undeclared manner must fail")
	}
}

func TestBot_MannerFallback(t *testing.T) {
	bot, err := parley.New(supportScript(t), parley.WithMannerFallback("Thanks for stopping by."))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	parting, err := bot.Finish(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Fallback finish failed: %v", err)
	}
	if parting != "Thanks for stopping by." {
		t.Errorf("Expected the fallback line, got %q", parting)
	}
}

func TestWithConversation_Restores(t *testing.T) {
	conv := domain.NewConversation("sess-1", "waiting")
	conv.Visit("diagnose")

	bot, err := parley.New(supportScript(t), parley.WithConversation(conv))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if bot.Current() != "diagnose" {
		t.Errorf("Expected to resume in diagnose, got %q", bot.Current())
	}

	// The engine works on a clone; the caller's copy stays untouched.
	if _, err := bot.Respond(context.Background(), "broken"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if conv.Current != "diagnose" {
		t.Errorf("Caller's conversation was mutated: %q", conv.Current)
	}
}

func TestWithConversation_UnknownState(t *testing.T) {
	conv := domain.NewConversation("sess-1", "vanished")

	if _, err := parley.New(supportScript(t), parley.WithConversation(conv)); err == nil {
		t.Fatal("Restoring a conversation in an unknown state must fail")
	}
}

func TestOpen_YAMLFile(t *testing.T) {
	content := `
name: support
default: waiting
tags:
  broken: problem
states:
  - name: waiting
    rules:
      - when: problem
        go_to: diagnose
    else:
      finish: confused
  - name: diagnose
    prompt: "What seems broken?"
    rules:
      - when: problem
        finish: solved
    else:
      finish: confused
manners:
  confused: "Sorry, I did not follow."
  solved: "Glad we sorted it out."
`
	path := filepath.Join(t.TempDir(), "support.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	bot, err := parley.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	reply, err := bot.Respond(context.Background(), "it is broken")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if reply != "What seems broken?" {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestOpen_MissingPath(t *testing.T) {
	if _, err := parley.Open(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected an error for a missing script file")
	}
	if _, err := parley.Open(""); err == nil {
		t.Fatal("Expected an error for an empty path without a loader")
	}
}

// mockWatchableLoader implements ScriptLoader and Watchable.
type mockWatchableLoader struct {
	def     *script.Definition
	watchCh chan string
}

func (m *mockWatchableLoader) Load(ctx context.Context) (*script.Definition, error) {
	return m.def, nil
}

func (m *mockWatchableLoader) Watch(ctx context.Context) (<-chan string, error) {
	return m.watchCh, nil
}

// mockLoader implements ScriptLoader but NOT Watchable.
type mockLoader struct {
	def *script.Definition
}

func (m *mockLoader) Load(ctx context.Context) (*script.Definition, error) {
	return m.def, nil
}

func minimalDefinition() *script.Definition {
	return &script.Definition{
		Name:    "mock",
		Default: "waiting",
		Tags:    map[string]any{"hello": "greeting"},
		States: []script.StateDefinition{
			{
				Name: "waiting",
				Rules: []script.Rule{
					{When: "greeting", Finish: "done"},
				},
				Else: &script.Else{Finish: "done"},
			},
		},
		Manners: map[string]string{"done": "Bye!"},
	}
}

func TestBot_Watch_Success(t *testing.T) {
	loader := &mockWatchableLoader{
		def:     minimalDefinition(),
		watchCh: make(chan string),
	}
	go func() {
		loader.watchCh <- "reload"
	}()

	bot, err := parley.Open("", parley.WithLoader(loader))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ch, err := bot.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	select {
	case <-ch:
		// Success
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for watch event")
	}
}

func TestBot_Watch_NotSupported(t *testing.T) {
	bot, err := parley.Open("", parley.WithLoader(&mockLoader{def: minimalDefinition()}))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := bot.Watch(context.Background()); err == nil {
		t.Fatal("Expected an error when the loader is not watchable")
	}
}
