package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hearth-home/hearth-core/internal/orchestrator"
)

// AssistTextRequest is the body of POST /assist/text. Model, when set,
// overrides the configured chat model for this request.
type AssistTextRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// AssistAudioRequest is the optional body of POST /assist/audio and
// POST /assist/transcribe.
type AssistAudioRequest struct {
	Model string `json:"model,omitempty"`
}

// handleAssistText runs a typed command through the engine and returns
// its summary. The call is synchronous; the response is the same
// summary published to the broker.
func (s *Server) handleAssistText(w http.ResponseWriter, r *http.Request) {
	var req AssistTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeBadRequest(w, "text is required")
		return
	}

	sum, err := s.engine.Handle(r.Context(), orchestrator.Request{
		ID:      requestID(r),
		Source:  orchestrator.SourceText,
		Text:    req.Text,
		ModelID: strings.TrimSpace(req.Model),
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleAssistAudio consumes the captured asset and sends it straight
// to the audio-capable model. Returns 409 when another audio request
// is already in flight.
func (s *Server) handleAssistAudio(w http.ResponseWriter, r *http.Request) {
	overrides, ok := decodeAudioRequest(w, r)
	if !ok {
		return
	}
	sum, err := s.engine.Handle(r.Context(), orchestrator.Request{
		ID:      requestID(r),
		Source:  orchestrator.SourceAudioTrigger,
		ModelID: overrides.Model,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleAssistTranscribe consumes the captured asset, transcribes it
// locally and runs the transcript through the text pathway.
func (s *Server) handleAssistTranscribe(w http.ResponseWriter, r *http.Request) {
	overrides, ok := decodeAudioRequest(w, r)
	if !ok {
		return
	}
	sum, err := s.engine.Handle(r.Context(), orchestrator.Request{
		ID:      requestID(r),
		Source:  orchestrator.SourceTranscribe,
		ModelID: overrides.Model,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// decodeAudioRequest reads the optional overrides body. An empty body
// selects the configured defaults.
func decodeAudioRequest(w http.ResponseWriter, r *http.Request) (AssistAudioRequest, bool) {
	var req AssistAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return req, false
	}
	req.Model = strings.TrimSpace(req.Model)
	return req, true
}

// handleAssistLast returns the most recent request summary.
func (s *Server) handleAssistLast(w http.ResponseWriter, r *http.Request) {
	last := s.engine.Last()
	if last == nil {
		writeNotFound(w, "no requests handled yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// handleListInteractions returns recent interaction log rows.
func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	if s.interactions == nil {
		writeNotFound(w, "interaction log not available")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.interactions.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing interactions", "error", err)
		writeInternalError(w, "failed to list interactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interactions": rows})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		writeConflict(w, "another audio request is in flight")
	case errors.Is(err, orchestrator.ErrUnknownSource):
		writeBadRequest(w, "unknown request source")
	default:
		writeInternalError(w, "request failed")
	}
}

// requestID pulls the middleware-assigned request ID off the context.
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}
