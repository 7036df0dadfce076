package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/lightshow-core/internal/playback"
	"github.com/nerrad567/lightshow-core/internal/sequence"
)

type startRequest struct {
	Sequence string `json:"sequence"`
}

// handleGetPlayback returns the controller status.
func (s *Server) handleGetPlayback(w http.ResponseWriter, _ *http.Request) {
	if s.playback == nil {
		writeUnavailable(w, "player not available")
		return
	}
	writeJSON(w, http.StatusOK, s.playback.Status())
}

// handleStartPlayback starts a compiled sequence. The name comes from the
// "sequence" query parameter or a JSON body.
func (s *Server) handleStartPlayback(w http.ResponseWriter, r *http.Request) {
	if s.playback == nil {
		writeUnavailable(w, "player not available")
		return
	}

	name := r.URL.Query().Get("sequence")
	if name == "" && r.ContentLength != 0 {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		name = req.Sequence
	}
	if name == "" {
		writeBadRequest(w, "sequence is required")
		return
	}

	// The session outlives the request.
	st, err := s.playback.Start(context.WithoutCancel(r.Context()), name)
	if err != nil {
		switch {
		case errors.Is(err, playback.ErrAlreadyPlaying):
			writeConflict(w, err.Error())
		case errors.Is(err, sequence.ErrUnknownSequence):
			writeNotFound(w, err.Error())
		default:
			s.logger.Error("starting playback", "sequence", name, "error", err)
			writeInternalError(w, "failed to start playback: "+err.Error())
		}
		return
	}

	operator := ""
	if c := claimsFromContext(r.Context()); c != nil {
		operator = c.Subject
	}
	s.logger.Info("playback started", "sequence", name, "session", st.SessionID, "operator", operator)
	writeJSON(w, http.StatusAccepted, st)
}

// handleStopPlayback cancels the active session.
func (s *Server) handleStopPlayback(w http.ResponseWriter, _ *http.Request) {
	if s.playback == nil {
		writeUnavailable(w, "player not available")
		return
	}
	st, err := s.playback.Stop()
	if errors.Is(err, playback.ErrNotPlaying) {
		writeConflict(w, err.Error())
		return
	}
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListSessions returns recent playback sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeUnavailable(w, "session history not available")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit")) //nolint:errcheck // zero falls back to the default
	sessions, err := s.sessions.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing playback sessions", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
