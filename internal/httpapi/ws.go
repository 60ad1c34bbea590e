package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"visavis/internal/camera"
	"visavis/internal/memory"
	"visavis/internal/protocol"
)

// jpegQuality trades frame fidelity for websocket bandwidth.
const jpegQuality = 80

// handleCameraWS streams annotated frames and presence changes to one
// client and accepts typed chat lines back. Frames are delivered
// latest-wins: a slow client skips frames instead of building a backlog.
func (s *Server) handleCameraWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.WSClients.Inc()
	defer s.metrics.WSClients.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connID := uuid.NewString()
	frameRx, err := s.frames.Subscribe("ws-frames-" + connID)
	if err != nil {
		return
	}
	defer func() { _ = s.frames.Unsubscribe("ws-frames-" + connID) }()

	eventRx, err := s.events.Subscribe("ws-presence-" + connID)
	if err != nil {
		return
	}
	defer func() { _ = s.events.Unsubscribe("ws-presence-" + connID) }()

	// Writes stay single-threaded through outbound; producers drop when
	// the queue is full rather than block the capture side.
	outbound := make(chan any, 64)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-frameRx.Notify():
				update, fresh := frameRx.Latest()
				if !fresh {
					continue
				}
				ev, err := frameEventOf(update)
				if err != nil {
					s.log.Debug().Err(err).Msg("frame encode failed")
					continue
				}
				queue(outbound, ev)
			case <-eventRx.Notify():
				if ev, fresh := eventRx.Latest(); fresh {
					queue(outbound, ev)
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			queue(outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Source: "gateway",
				Detail: err.Error(),
			})
			continue
		}

		msg, ok := parsed.(protocol.ClientChat)
		if !ok {
			continue
		}
		s.serveChatLine(ctx, outbound, msg)
	}

	cancel()
	<-writerDone
}

func (s *Server) serveChatLine(ctx context.Context, outbound chan<- any, msg protocol.ClientChat) {
	speaker := s.speakerFor(msg.Speaker)
	resp, err := s.chat.GetResponse(ctx, msg.Text, speaker)
	if err != nil {
		queue(outbound, protocol.ErrorEvent{
			Type:   protocol.TypeErrorEvent,
			Code:   "chat_failed",
			Source: "chat",
			Detail: err.Error(),
		})
		return
	}
	s.metrics.Messages.WithLabelValues(string(resp.Category)).Inc()

	now := time.Now().UTC().UnixMilli()
	queue(outbound, protocol.ChatEvent{
		Type:    protocol.TypeChatEvent,
		Speaker: resp.Speaker,
		Role:    memory.RoleUser,
		Text:    msg.Text,
		TSMs:    now,
	})
	queue(outbound, protocol.ChatEvent{
		Type:     protocol.TypeChatEvent,
		Speaker:  resp.Speaker,
		Role:     memory.RoleBot,
		Text:     resp.Text,
		Category: string(resp.Category),
		TSMs:     now,
	})
}

func frameEventOf(u camera.Update) (protocol.FrameEvent, error) {
	jpegData, err := u.Frame.EncodeJPEG(jpegQuality)
	if err != nil {
		return protocol.FrameEvent{}, err
	}
	regions := make([]protocol.Region, 0, len(u.Regions))
	for _, reg := range u.Regions {
		regions = append(regions, protocol.Region{
			X: reg.X, Y: reg.Y, W: reg.W, H: reg.H, Score: reg.Score,
		})
	}
	return protocol.FrameEvent{
		Type:       protocol.TypeFrameEvent,
		Seq:        u.Frame.Seq,
		TSMs:       u.Frame.Timestamp.UnixMilli(),
		Width:      u.Frame.Width,
		Height:     u.Frame.Height,
		JPEGBase64: base64.StdEncoding.EncodeToString(jpegData),
		Name:       u.Name,
		Regions:    regions,
	}, nil
}

// queue never blocks: stale events are cheaper than a stalled reader.
func queue(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
	}
}
