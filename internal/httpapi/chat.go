package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

type chatMessageRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

type exportRequest struct {
	Path string `json:"path,omitempty"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := s.chat.GetResponse(r.Context(), req.Text, s.speakerFor(req.Speaker))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "chat_failed", err.Error())
		return
	}
	s.metrics.Messages.WithLabelValues(string(resp.Category)).Inc()
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	speaker := strings.TrimSpace(r.URL.Query().Get("speaker"))
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	turns, err := s.chat.History(r.Context(), speaker, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"turns": turns,
		"count": len(turns),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	speaker := strings.TrimSpace(r.URL.Query().Get("speaker"))
	if err := s.chat.Clear(r.Context(), speaker); err != nil {
		respondError(w, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	path, err := s.chat.Export(r.Context(), req.Path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"path": path})
}
