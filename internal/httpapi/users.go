package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"visavis/internal/camera"
	"visavis/internal/identity"
)

type enrollRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	users := s.identities.Users()
	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleEnrollUser captures registration frames from the live feed, so a
// face has to be in front of the camera while the request runs.
func (s *Server) handleEnrollUser(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}

	if err := s.cam.Enroll(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, identity.ErrDuplicate):
			respondError(w, http.StatusConflict, "user_exists", err.Error())
		case errors.Is(err, camera.ErrNotRunning):
			respondError(w, http.StatusServiceUnavailable, "camera_not_running", err.Error())
		case errors.Is(err, camera.ErrNoFace), errors.Is(err, identity.ErrNoCandidates):
			respondError(w, http.StatusUnprocessableEntity, "no_face_captured", err.Error())
		default:
			s.metrics.StoreErrors.WithLabelValues("register").Inc()
			respondError(w, http.StatusInternalServerError, "enroll_failed", err.Error())
		}
		return
	}

	s.metrics.EnrolledUsers.Set(float64(s.identities.Count()))
	s.log.Info().Str("name", name).Msg("user enrolled")
	respondJSON(w, http.StatusCreated, map[string]any{
		"name":  name,
		"count": s.identities.Count(),
	})
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "missing user name")
		return
	}

	if err := s.identities.Remove(name); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", err.Error())
			return
		}
		s.metrics.StoreErrors.WithLabelValues("remove").Inc()
		respondError(w, http.StatusInternalServerError, "remove_failed", err.Error())
		return
	}

	s.metrics.EnrolledUsers.Set(float64(s.identities.Count()))
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "removed",
		"name":   name,
	})
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "missing user name")
		return
	}

	stats := s.chat.Stats(name)
	respondJSON(w, http.StatusOK, map[string]any{
		"name":  name,
		"stats": stats,
		"known": stats.MessageCount > 0,
	})
}
