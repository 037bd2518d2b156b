package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hearth-home/hearth-core/internal/capture"
	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/infrastructure/logging"
	"github.com/hearth-home/hearth-core/internal/interaction"
	"github.com/hearth-home/hearth-core/internal/orchestrator"
)

type fakeEngine struct {
	summary   *orchestrator.Summary
	handleErr error
	lastReq   orchestrator.Request

	last *orchestrator.Summary

	state    capture.State
	startErr error
	stopErr  error
}

func (f *fakeEngine) Handle(ctx context.Context, req orchestrator.Request) (*orchestrator.Summary, error) {
	f.lastReq = req
	if f.handleErr != nil {
		return nil, f.handleErr
	}
	return f.summary, nil
}

func (f *fakeEngine) Last() *orchestrator.Summary { return f.last }
func (f *fakeEngine) StartRecording() error       { return f.startErr }
func (f *fakeEngine) StopRecording() error        { return f.stopErr }
func (f *fakeEngine) RecordingState() capture.State {
	return f.state
}
func (f *fakeEngine) ResetRecording() { f.state = capture.StateIdle }

type fakeInteractions struct {
	rows []interaction.Interaction
	err  error
}

func (f *fakeInteractions) Create(ctx context.Context, in *interaction.Interaction) error {
	return nil
}

func (f *fakeInteractions) Recent(ctx context.Context, limit int) ([]interaction.Interaction, error) {
	return f.rows, f.err
}

func (f *fakeInteractions) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func newTestServer(t *testing.T, engine *fakeEngine) (*Server, http.Handler) {
	t.Helper()
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
	srv, err := New(Deps{
		Config:       config.APIConfig{Host: "127.0.0.1", Port: 8098},
		Logger:       logger,
		Engine:       engine,
		Interactions: &fakeInteractions{rows: []interaction.Interaction{{RequestID: "req-1"}}},
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, srv.buildRouter()
}

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAssistText(t *testing.T) {
	engine := &fakeEngine{
		summary: &orchestrator.Summary{
			RequestID:   "req-1",
			Source:      orchestrator.SourceText,
			Explanation: "Turning off the kitchen light",
			Results:     []orchestrator.ExecutionResult{},
		},
	}
	_, handler := newTestServer(t, engine)

	rec := doRequest(handler, http.MethodPost, "/api/v1/assist/text", `{"text":"turn off the kitchen light"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var sum orchestrator.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("response not a summary: %v", err)
	}
	if sum.Explanation != "Turning off the kitchen light" {
		t.Fatalf("summary = %+v", sum)
	}
	if engine.lastReq.Source != orchestrator.SourceText || engine.lastReq.Text != "turn off the kitchen light" {
		t.Fatalf("engine request = %+v", engine.lastReq)
	}
	if engine.lastReq.ID == "" {
		t.Fatal("request ID not propagated from middleware")
	}
}

func TestAssistText_Validation(t *testing.T) {
	engine := &fakeEngine{}
	_, handler := newTestServer(t, engine)

	cases := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":"  "}`},
		{"missing text", `{}`},
		{"invalid JSON", `{"text":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodPost, "/api/v1/assist/text", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAssist_ModelOverride(t *testing.T) {
	engine := &fakeEngine{
		summary: &orchestrator.Summary{RequestID: "req-3", Results: []orchestrator.ExecutionResult{}},
	}
	_, handler := newTestServer(t, engine)

	rec := doRequest(handler, http.MethodPost, "/api/v1/assist/text", `{"text":"hi","model":"gpt-5"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("text status = %d", rec.Code)
	}
	if engine.lastReq.ModelID != "gpt-5" {
		t.Fatalf("text ModelID = %q, want gpt-5", engine.lastReq.ModelID)
	}

	rec = doRequest(handler, http.MethodPost, "/api/v1/assist/audio", `{"model":"gpt-4o-audio-preview"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("audio status = %d", rec.Code)
	}
	if engine.lastReq.ModelID != "gpt-4o-audio-preview" {
		t.Fatalf("audio ModelID = %q, want gpt-4o-audio-preview", engine.lastReq.ModelID)
	}

	// No body means defaults, a broken body is still a client error.
	rec = doRequest(handler, http.MethodPost, "/api/v1/assist/transcribe", "")
	if rec.Code != http.StatusOK || engine.lastReq.ModelID != "" {
		t.Fatalf("transcribe status = %d, ModelID = %q", rec.Code, engine.lastReq.ModelID)
	}
	if rec := doRequest(handler, http.MethodPost, "/api/v1/assist/audio", `{"model":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("broken body status = %d, want 400", rec.Code)
	}
}

func TestAssistAudio_Busy(t *testing.T) {
	engine := &fakeEngine{handleErr: orchestrator.ErrBusy}
	_, handler := newTestServer(t, engine)

	rec := doRequest(handler, http.MethodPost, "/api/v1/assist/audio", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestAssistTranscribe(t *testing.T) {
	engine := &fakeEngine{
		summary: &orchestrator.Summary{RequestID: "req-2", Source: orchestrator.SourceTranscribe},
	}
	_, handler := newTestServer(t, engine)

	rec := doRequest(handler, http.MethodPost, "/api/v1/assist/transcribe", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if engine.lastReq.Source != orchestrator.SourceTranscribe {
		t.Fatalf("engine request source = %s", engine.lastReq.Source)
	}
}

func TestAssistLast(t *testing.T) {
	engine := &fakeEngine{}
	_, handler := newTestServer(t, engine)

	if rec := doRequest(handler, http.MethodGet, "/api/v1/assist/last", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any request", rec.Code)
	}

	engine.last = &orchestrator.Summary{RequestID: "req-9"}
	rec := doRequest(handler, http.MethodGet, "/api/v1/assist/last", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sum orchestrator.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil || sum.RequestID != "req-9" {
		t.Fatalf("last = %+v, err = %v", sum, err)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	engine := &fakeEngine{state: capture.StateRecording}
	_, handler := newTestServer(t, engine)

	rec := doRequest(handler, http.MethodPost, "/api/v1/recording/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}

	var state RecordingStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil || state.State != capture.StateRecording {
		t.Fatalf("state = %+v, err = %v", state, err)
	}

	if rec := doRequest(handler, http.MethodGet, "/api/v1/recording/state", ""); rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
}

func TestRecording_ConflictMapping(t *testing.T) {
	engine := &fakeEngine{
		startErr: capture.ErrAlreadyRecording,
		stopErr:  capture.ErrNotRecording,
	}
	_, handler := newTestServer(t, engine)

	if rec := doRequest(handler, http.MethodPost, "/api/v1/recording/start", ""); rec.Code != http.StatusConflict {
		t.Fatalf("start status = %d, want 409", rec.Code)
	}
	if rec := doRequest(handler, http.MethodPost, "/api/v1/recording/stop", ""); rec.Code != http.StatusConflict {
		t.Fatalf("stop status = %d, want 409", rec.Code)
	}
}

func TestRecording_CaptureFailure(t *testing.T) {
	engine := &fakeEngine{stopErr: capture.ErrCaptureFailed}
	_, handler := newTestServer(t, engine)

	if rec := doRequest(handler, http.MethodPost, "/api/v1/recording/stop", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("stop status = %d, want 500", rec.Code)
	}
}

func TestListInteractions(t *testing.T) {
	engine := &fakeEngine{}
	_, handler := newTestServer(t, engine)

	rec := doRequest(handler, http.MethodGet, "/api/v1/interactions?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Interactions []interaction.Interaction `json:"interactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Interactions) != 1 {
		t.Fatalf("response = %s, err = %v", rec.Body.String(), err)
	}

	if rec := doRequest(handler, http.MethodGet, "/api/v1/interactions?limit=zero", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	engine := &fakeEngine{}
	srv, _ := newTestServer(t, engine)
	srv.health = map[string]HealthChecker{
		"database": func(ctx context.Context) error { return nil },
		"mqtt":     func(ctx context.Context) error { return errors.New("not connected") },
	}
	handler := srv.buildRouter()

	rec := doRequest(handler, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("health response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["database"] != "ok" || resp.Checks["mqtt"] != "not connected" {
		t.Fatalf("checks = %v", resp.Checks)
	}
}
