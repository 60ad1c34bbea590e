package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process conversation log for local/dev use.
// The log is owned by the store and only ever handed out as copies.
type InMemoryStore struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.Speaker == "" {
		turn.Speaker = UnknownSpeaker
	}
	s.turns = append(s.turns, turn)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, speaker string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, 0, len(s.turns))
	for _, turn := range s.turns {
		if speaker != "" && turn.Speaker != speaker {
			continue
		}
		out = append(out, turn)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryStore) Clear(_ context.Context, speaker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if speaker == "" {
		s.turns = nil
		return nil
	}
	kept := s.turns[:0]
	for _, turn := range s.turns {
		if turn.Speaker != speaker {
			kept = append(kept, turn)
		}
	}
	s.turns = kept
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
