package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visavis/internal/memory"
)

// emptyPrompt is the fixed reply to empty or whitespace-only input.
const emptyPrompt = "I didn't catch that. Could you please say something?"

// SessionStats is the ephemeral per-name context for the running process.
type SessionStats struct {
	MessageCount int       `json:"message_count"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// Response is what the bot says back, plus the category the message was
// filed under so callers can count it.
type Response struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Speaker  string   `json:"speaker"`
}

// Manager owns the conversation log and the per-name session context.
// Neither is ever aliased out: history leaves as copies via the store,
// stats leave by value.
type Manager struct {
	store memory.Store
	log   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*SessionStats

	// randInt is the uniform draw over canned responses, injectable for
	// deterministic tests.
	randInt func(n int) int
}

func NewManager(store memory.Store, log zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		log:      log.With().Str("component", "chat").Logger(),
		sessions: make(map[string]*SessionStats),
		randInt:  rand.IntN,
	}
}

// GetResponse records the user's turn and produces a reply. Empty input
// short-circuits with a fixed prompt and advances nothing.
func (m *Manager) GetResponse(ctx context.Context, text, name string) (Response, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Response{Text: emptyPrompt, Category: CategoryDefault, Speaker: name}, nil
	}

	speaker := name
	if speaker == "" {
		speaker = memory.UnknownSpeaker
	}

	firstContact := false
	if name != "" {
		m.mu.Lock()
		stats, ok := m.sessions[name]
		if !ok {
			stats = &SessionStats{FirstSeen: time.Now().UTC()}
			m.sessions[name] = stats
		}
		stats.MessageCount++
		stats.LastSeen = time.Now().UTC()
		firstContact = stats.MessageCount == 1
		m.mu.Unlock()
	}

	if err := m.store.Append(ctx, memory.Turn{Speaker: speaker, Role: memory.RoleUser, Text: trimmed}); err != nil {
		return Response{}, fmt.Errorf("record user turn: %w", err)
	}

	category := Categorize(trimmed)
	reply := m.draw(category)

	if name != "" && category != CategoryGoodbye {
		switch {
		case category == CategoryGreetings && firstContact:
			reply = fmt.Sprintf("Hello %s! %s", name, reply)
		case category == CategoryQuestions || category == CategoryHelpRequests:
			reply = fmt.Sprintf("%s What do you think, %s?", reply, name)
		}
	}

	if err := m.store.Append(ctx, memory.Turn{Speaker: speaker, Role: memory.RoleBot, Text: reply}); err != nil {
		// The reply is already composed; losing the bot-side record is
		// logged rather than surfaced as a chat failure.
		m.log.Error().Err(err).Msg("record bot turn failed")
	}

	return Response{Text: reply, Category: category, Speaker: speaker}, nil
}

func (m *Manager) draw(category Category) string {
	pool, ok := responses[category]
	if !ok || len(pool) == 0 {
		pool = responses[CategoryDefault]
	}
	return pool[m.randInt(len(pool))]
}

// History returns the conversation log, optionally filtered to one
// speaker.
func (m *Manager) History(ctx context.Context, speaker string, limit int) ([]memory.Turn, error) {
	return m.store.History(ctx, speaker, limit)
}

// Stats returns the per-name session context. Unknown names get a zero
// value, not an error.
func (m *Manager) Stats(name string) SessionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stats, ok := m.sessions[name]; ok {
		return *stats
	}
	return SessionStats{}
}

// Clear drops conversation history wholesale, or just one speaker's turns
// and session context.
func (m *Manager) Clear(ctx context.Context, speaker string) error {
	if err := m.store.Clear(ctx, speaker); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if speaker == "" {
		m.sessions = make(map[string]*SessionStats)
	} else {
		delete(m.sessions, speaker)
	}
	return nil
}

// exportFile is the on-disk export container.
type exportFile struct {
	Turns      []memory.Turn           `json:"conversation_history"`
	Sessions   map[string]SessionStats `json:"session_context"`
	ExportedAt time.Time               `json:"exported_at"`
}

// Export writes the conversation log and session context to a JSON file.
// An empty path derives a timestamped default filename. The chosen path
// is returned so callers can report it.
func (m *Manager) Export(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = fmt.Sprintf("conversation_%s.json", time.Now().Format("20060102_150405"))
	}

	turns, err := m.store.History(ctx, "", 0)
	if err != nil {
		return "", fmt.Errorf("collect history: %w", err)
	}

	m.mu.Lock()
	sessions := make(map[string]SessionStats, len(m.sessions))
	for name, stats := range m.sessions {
		sessions[name] = *stats
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(exportFile{
		Turns:      turns,
		Sessions:   sessions,
		ExportedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	m.log.Info().Str("path", path).Int("turns", len(turns)).Msg("exported conversation")
	return path, nil
}
