package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/logging"
	"github.com/twil3akine/gurobilab/internal/session"
	"github.com/twil3akine/gurobilab/internal/settings"
)

const (
	version = "v0.1.0"

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
)

// handleHealth returns the health status of the server
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version,
		Uptime:  s.Uptime(),
		Session: s.session.Snapshot().StatusText,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Focus != "" {
		s.session.SetFocus(req.Focus)
	}
	if err := s.session.Start(s.baseContext(), req.Script, req.Args); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Cancel(); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleAnalyze blocks until the analysis settles. The analysis itself runs
// on the server context so a dropped client does not abort it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := s.session.AskAI(s.baseContext()); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.session.TogglePreview(r.Context()); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	s.session.SetFocus(req.Focus)
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleEvents streams session changes as server-sent events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	events, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "status", s.session.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			name, payload := eventPayload(ev, s.session.Snapshot)
			if err := writeEvent(w, name, payload); err != nil {
				logging.FromContext(r.Context()).Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimitParam(r)
	s.writeJSON(w, http.StatusOK, summarize(s.history.Load(), limit))
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	if err := s.session.Restore(rec); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleClearHistory wipes the history. The caller must pass confirm=true.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		s.writeError(w, r, http.StatusBadRequest, "add confirm=true to clear the history", nil)
		return
	}
	if err := s.history.Clear(); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupRecord(w http.ResponseWriter, r *http.Request) (history.Record, bool) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "history index must be an integer", nil)
		return history.Record{}, false
	}
	rec, ok := s.history.Get(idx)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, "history entry not found", nil)
		return history.Record{}, false
	}
	return rec, true
}

// handleGetSettings returns the settings in effect with the API key masked.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.settings.Current().Masked())
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var req SettingRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.settings.Set(r.PathValue("key"), req.Value); err != nil {
		s.writeSettingError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.settings.Current().Masked())
}

func (s *Server) handleRemoveSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Remove(r.PathValue("key")); err != nil {
		s.writeSettingError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.settings.Current().Masked())
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.schedules.List())
}

// parseLimitParam parses the limit query parameter. Zero means no limit.
func parseLimitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		logging.FromContext(r.Context()).Warn("API error", "status", status, "message", message, "error", err)
		message = message + ": " + err.Error()
	}
	s.writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// writeSessionError maps orchestrator rejections to HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNoScript), errors.Is(err, session.ErrEmptyLog):
		s.writeError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, session.ErrAlreadyRunning), errors.Is(err, session.ErrBusy):
		s.writeError(w, r, http.StatusConflict, err.Error(), nil)
	default:
		s.writeError(w, r, http.StatusInternalServerError, "session error", err)
	}
}

func (s *Server) writeSettingError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, settings.ErrUnknownKey) {
		s.writeError(w, r, http.StatusNotFound, err.Error(), nil)
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "invalid setting", err)
}
