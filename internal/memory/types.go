package memory

import (
	"context"
	"time"
)

// UnknownSpeaker is recorded when a message arrives while nobody is
// recognized on camera.
const UnknownSpeaker = "Unknown"

// Turn stores a single conversational turn: who said what, and when.
type Turn struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Roles distinguish the human side of a turn from the bot side.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Store persists and retrieves the conversation log. The log is
// append-only; turns are never mutated, only cleared wholesale or
// filtered out per speaker.
type Store interface {
	Append(ctx context.Context, turn Turn) error
	History(ctx context.Context, speaker string, limit int) ([]Turn, error)
	Clear(ctx context.Context, speaker string) error
	Close() error
}
