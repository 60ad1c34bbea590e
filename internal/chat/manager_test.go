package chat

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"visavis/internal/memory"
)

func testManager() *Manager {
	m := NewManager(memory.NewInMemoryStore(), zerolog.Nop())
	m.randInt = func(int) int { return 0 }
	return m
}

func TestGetResponseEmptyInput(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	res, err := m.GetResponse(ctx, "   \t ", "alice")
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if !strings.Contains(res.Text, "didn't catch that") {
		t.Fatalf("empty input reply = %q, want the fixed prompt", res.Text)
	}
	if got := m.Stats("alice").MessageCount; got != 0 {
		t.Fatalf("MessageCount after empty input = %d, want 0", got)
	}
	history, _ := m.History(ctx, "", 0)
	if len(history) != 0 {
		t.Fatalf("history after empty input len = %d, want 0", len(history))
	}
}

func TestGetResponseFirstContactGreeting(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	res, err := m.GetResponse(ctx, "hello", "alice")
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if res.Category != CategoryGreetings {
		t.Fatalf("Category = %q, want %q", res.Category, CategoryGreetings)
	}
	if !strings.HasPrefix(res.Text, "Hello alice! ") {
		t.Fatalf("first greeting = %q, want personalized salutation prefix", res.Text)
	}

	// A second greeting is no longer first contact.
	res, err = m.GetResponse(ctx, "hello again", "alice")
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if strings.HasPrefix(res.Text, "Hello alice! ") {
		t.Fatalf("second greeting = %q, should not repeat the salutation", res.Text)
	}
}

func TestGetResponseQuestionFollowUp(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	res, err := m.GetResponse(ctx, "why is the sky blue", "bob")
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if res.Category != CategoryQuestions {
		t.Fatalf("Category = %q, want %q", res.Category, CategoryQuestions)
	}
	if !strings.HasSuffix(res.Text, "What do you think, bob?") {
		t.Fatalf("question reply = %q, want name-directed follow-up", res.Text)
	}
}

func TestGetResponseGoodbyeNeverPersonalized(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	res, err := m.GetResponse(ctx, "goodbye", "bob")
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if res.Category != CategoryGoodbye {
		t.Fatalf("Category = %q, want %q", res.Category, CategoryGoodbye)
	}
	if strings.Contains(res.Text, "bob") {
		t.Fatalf("goodbye reply = %q, should not be personalized", res.Text)
	}
}

func TestGetResponseUnknownSpeakerRecorded(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	if _, err := m.GetResponse(ctx, "hello", ""); err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	history, _ := m.History(ctx, memory.UnknownSpeaker, 0)
	if len(history) != 2 {
		t.Fatalf("Unknown history len = %d, want user+bot turns", len(history))
	}
}

func TestStatsAndClear(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	for range 3 {
		if _, err := m.GetResponse(ctx, "hello", "alice"); err != nil {
			t.Fatalf("GetResponse() error = %v", err)
		}
	}
	if _, err := m.GetResponse(ctx, "hi", "bob"); err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}

	if got := m.Stats("alice").MessageCount; got != 3 {
		t.Fatalf("Stats(alice).MessageCount = %d, want 3", got)
	}
	if got := m.Stats("stranger").MessageCount; got != 0 {
		t.Fatalf("Stats(stranger).MessageCount = %d, want 0", got)
	}

	if err := m.Clear(ctx, "alice"); err != nil {
		t.Fatalf("Clear(alice) error = %v", err)
	}
	if got := m.Stats("alice").MessageCount; got != 0 {
		t.Fatalf("Stats(alice).MessageCount after clear = %d, want 0", got)
	}
	bobHistory, _ := m.History(ctx, "bob", 0)
	if len(bobHistory) == 0 {
		t.Fatalf("Clear(alice) should not drop bob's history")
	}

	if err := m.Clear(ctx, ""); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	all, _ := m.History(ctx, "", 0)
	if len(all) != 0 {
		t.Fatalf("history after wholesale clear len = %d, want 0", len(all))
	}
}

func TestExportWritesJSON(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	if _, err := m.GetResponse(ctx, "hello", "alice"); err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "export.json")
	got, err := m.Export(ctx, path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got != path {
		t.Fatalf("Export() path = %q, want %q", got, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var out struct {
		Turns    []memory.Turn           `json:"conversation_history"`
		Sessions map[string]SessionStats `json:"session_context"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(out.Turns) != 2 {
		t.Fatalf("export turns len = %d, want 2", len(out.Turns))
	}
	if out.Sessions["alice"].MessageCount != 1 {
		t.Fatalf("export session context = %+v, want alice count 1", out.Sessions)
	}
}

func TestExportDefaultFilename(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	path, err := m.Export(ctx, "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasPrefix(path, "conversation_") || !strings.HasSuffix(path, ".json") {
		t.Fatalf("default export filename = %q, want conversation_*.json", path)
	}
	if _, err := os.Stat(filepath.Join(dir, path)); err != nil {
		t.Fatalf("default export file missing: %v", err)
	}
}
