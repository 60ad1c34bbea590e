package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"client_chat","text":"hello there","speaker":"alice"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chat, ok := msg.(ClientChat)
	if !ok {
		t.Fatalf("message type = %T, want ClientChat", msg)
	}
	if chat.Text != "hello there" || chat.Speaker != "alice" {
		t.Fatalf("unexpected chat message: %+v", chat)
	}
}

func TestParseClientMessageAllowsEmptyText(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_chat","text":""}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if chat := msg.(ClientChat); chat.Text != "" {
		t.Fatalf("Text = %q, want empty", chat.Text)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestFrameEventOmitsEmptyRegions(t *testing.T) {
	raw, err := json.Marshal(FrameEvent{Type: TypeFrameEvent, Seq: 3, Name: "Unknown"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, present := decoded["regions"]; present {
		t.Fatalf("regions should be omitted when no face was found: %s", raw)
	}
}
