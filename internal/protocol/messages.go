package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientChat    MessageType = "client_chat"
	TypeFrameEvent    MessageType = "frame_event"
	TypePresenceEvent MessageType = "presence_event"
	TypeChatEvent     MessageType = "chat_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientChat is the only inbound message: a chat line typed by the
// connected client. Speaker is optional; the server attributes the
// message to whoever the camera currently sees when it is empty.
type ClientChat struct {
	Type    MessageType `json:"type"`
	Text    string      `json:"text"`
	Speaker string      `json:"speaker,omitempty"`
}

// Region mirrors a detected face rectangle in frame coordinates.
type Region struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	W     int     `json:"w"`
	H     int     `json:"h"`
	Score float32 `json:"score"`
}

// FrameEvent carries one annotated camera frame to the client.
type FrameEvent struct {
	Type       MessageType `json:"type"`
	Seq        uint64      `json:"seq"`
	TSMs       int64       `json:"ts_ms"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	JPEGBase64 string      `json:"jpeg_base64"`
	Name       string      `json:"name"`
	Regions    []Region    `json:"regions,omitempty"`
}

// PresenceEvent announces that the recognized person changed or left.
type PresenceEvent struct {
	Type     MessageType `json:"type"`
	Name     string      `json:"name"`
	Present  bool        `json:"present"`
	SinceMs  int64       `json:"since_ms"`
	LastSeen int64       `json:"last_seen_ms"`
}

// ChatEvent carries one conversation turn, user or bot.
type ChatEvent struct {
	Type     MessageType `json:"type"`
	Speaker  string      `json:"speaker"`
	Role     string      `json:"role"`
	Text     string      `json:"text"`
	Category string      `json:"category,omitempty"`
	TSMs     int64       `json:"ts_ms"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Source string      `json:"source"`
	Detail string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound client payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientChat:
		var msg ClientChat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		// Empty text is deliberately allowed: the bot answers it with a
		// "say something" prompt instead of dropping the message.
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
