package api

import (
	"errors"
	"net/http"

	"github.com/hearth-home/hearth-core/internal/capture"
)

// RecordingStateResponse reports the capture lifecycle state.
type RecordingStateResponse struct {
	State capture.State `json:"state"`
}

// handleRecordingStart begins a capture session.
func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StartRecording(); err != nil {
		s.writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordingStateResponse{State: s.engine.RecordingState()})
}

// handleRecordingStop ends the capture session. On success the asset
// sits in Captured until /assist/audio or /assist/transcribe consumes
// it.
func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StopRecording(); err != nil {
		s.writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordingStateResponse{State: s.engine.RecordingState()})
}

// handleRecordingReset clears a failed capture session.
func (s *Server) handleRecordingReset(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetRecording()
	writeJSON(w, http.StatusOK, RecordingStateResponse{State: s.engine.RecordingState()})
}

// handleRecordingState reports the current capture state.
func (s *Server) handleRecordingState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RecordingStateResponse{State: s.engine.RecordingState()})
}

func (s *Server) writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrAlreadyRecording):
		writeConflict(w, "recording already in progress")
	case errors.Is(err, capture.ErrNotRecording):
		writeConflict(w, "no recording in progress")
	case errors.Is(err, capture.ErrInvalidState):
		writeConflict(w, err.Error())
	default:
		s.logger.Error("capture operation failed", "error", err)
		writeInternalError(w, err.Error())
	}
}
