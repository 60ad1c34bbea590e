package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"visavis/internal/camera"
	"visavis/internal/chat"
	"visavis/internal/config"
	"visavis/internal/framehub"
	"visavis/internal/identity"
	"visavis/internal/observability"
	"visavis/internal/presence"
	"visavis/internal/protocol"
)

// CameraControl is the slice of the camera service the API needs.
type CameraControl interface {
	Refresh() error
	Enroll(ctx context.Context, name string) error
	State() camera.State
}

type Server struct {
	cfg        config.Config
	chat       *chat.Manager
	identities *identity.Store
	cam        CameraControl
	presence   *presence.Tracker
	frames     *framehub.Hub[camera.Update]
	events     *framehub.Hub[protocol.PresenceEvent]
	metrics    *observability.Metrics
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

func New(
	cfg config.Config,
	chatMgr *chat.Manager,
	identities *identity.Store,
	cam CameraControl,
	tracker *presence.Tracker,
	frames *framehub.Hub[camera.Update],
	events *framehub.Hub[protocol.PresenceEvent],
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Server {
	return &Server{
		cfg:        cfg,
		chat:       chatMgr,
		identities: identities,
		cam:        cam,
		presence:   tracker,
		frames:     frames,
		events:     events,
		metrics:    metrics,
		log:        log.With().Str("component", "httpapi").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin, so other websites cannot watch the camera feed
				// if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat/message", s.handleChatMessage)
	r.Get("/v1/chat/history", s.handleChatHistory)
	r.Delete("/v1/chat/history", s.handleClearHistory)
	r.Post("/v1/chat/export", s.handleExport)

	r.Get("/v1/users", s.handleListUsers)
	r.Post("/v1/users", s.handleEnrollUser)
	r.Delete("/v1/users/{name}", s.handleRemoveUser)
	r.Get("/v1/users/{name}/stats", s.handleUserStats)

	r.Get("/v1/camera/ws", s.handleCameraWS)
	r.Post("/v1/camera/refresh", s.handleCameraRefresh)
	r.Get("/v1/perf/pipeline", s.handlePerfPipeline)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"camera_state":   s.cameraState(),
		"enrolled_users": s.identities.Count(),
	})
}

// handleReady reports ready only while the capture loop is running, so
// orchestration keeps traffic away during camera refresh.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	state := s.cameraState()
	if state != string(camera.StateRunning) {
		respondError(w, http.StatusServiceUnavailable, "camera_not_running", "capture loop state is "+state)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"camera_state": state,
	})
}

func (s *Server) handleCameraRefresh(w http.ResponseWriter, _ *http.Request) {
	if err := s.cam.Refresh(); err != nil {
		if errors.Is(err, camera.ErrNotRunning) {
			respondError(w, http.StatusConflict, "camera_not_running", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "refresh_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "refreshed"})
}

func (s *Server) handlePerfPipeline(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.SnapshotPipeline())
}

func (s *Server) cameraState() string {
	if s.cam == nil {
		return string(camera.StateIdle)
	}
	return string(s.cam.State())
}

// speakerFor resolves who a chat message belongs to: an explicit speaker
// wins, otherwise whoever the camera currently sees.
func (s *Server) speakerFor(explicit string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if s.presence != nil {
		if p, ok := s.presence.Current(); ok {
			return p.Name
		}
	}
	return ""
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
