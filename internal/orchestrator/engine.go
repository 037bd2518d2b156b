package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearth-home/hearth-core/internal/capture"
	"github.com/hearth-home/hearth-core/internal/homeassistant"
	"github.com/hearth-home/hearth-core/internal/interaction"
	"github.com/hearth-home/hearth-core/internal/llm"
	"github.com/hearth-home/hearth-core/internal/plan"
	"github.com/hearth-home/hearth-core/internal/policy"
	"github.com/hearth-home/hearth-core/internal/transcribe"
)

// HomeControl is the device-control surface the engine executes
// against.
type HomeControl interface {
	Snapshot(ctx context.Context) (*homeassistant.Snapshot, error)
	Invoke(ctx context.Context, domain, service, entityID string, data map[string]plan.Value) error
}

// Planner proposes action plans from text or audio.
type Planner interface {
	ProposeFromText(ctx context.Context, model, userText, contextJSON string) (*plan.Plan, *llm.Usage, error)
	ProposeFromAudio(ctx context.Context, model string, audio []byte, format, contextJSON string) (*plan.Plan, *llm.Usage, error)
	ReduceCandidates(ctx context.Context, userText string, snap *homeassistant.Snapshot) ([]string, []string, error)
	Model() string
	AudioModel() string
}

// Recorder is the capture controller surface the engine drives.
type Recorder interface {
	Start() error
	Stop() error
	ReadAsset() ([]byte, error)
	State() capture.State
	LastDuration() time.Duration
	LastSize() int64
	Reset()
}

// Checker decides whether a proposed action may execute.
type Checker interface {
	Check(action plan.Action, registry policy.Registry) policy.Decision
}

// Publisher pushes request summaries and activity events to the broker.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// Metrics records model, action and capture telemetry. The InfluxDB
// client satisfies this and degrades to a no-op when disconnected.
type Metrics interface {
	WriteModelCall(model, source string, latency time.Duration, promptTokens, completionTokens, cachedTokens int)
	WriteActionOutcome(domain, service, outcome, reason string, latency time.Duration)
	WriteCaptureSession(outcome string, duration time.Duration, sizeBytes int64)
}

// Topics names the broker topics the engine publishes to.
type Topics interface {
	AssistantResponse() string
	AssistantActivity() string
}

// Options configures engine behavior.
type Options struct {
	// TwoStep enables the candidate-reduction pre-pass on the text
	// pathway. Audio goes straight to the full context since there is
	// no text to route on.
	TwoStep bool

	// AudioFormat is the container format of captured assets.
	AudioFormat string
}

// Engine turns natural-language requests into policy-checked device
// calls. One instance serves all pathways.
type Engine struct {
	home        HomeControl
	planner     Planner
	recorder    Recorder
	transcriber transcribe.Transcriber
	checker     Checker
	publisher   Publisher
	metrics     Metrics
	topics      Topics
	log         interaction.Repository
	logger      *slog.Logger
	opts        Options

	// audioMu admits one audio-trigger request at a time.
	audioMu sync.Mutex

	lastMu sync.RWMutex
	last   *Summary
}

// Deps collects the engine's collaborators.
type Deps struct {
	Home        HomeControl
	Planner     Planner
	Recorder    Recorder
	Transcriber transcribe.Transcriber
	Checker     Checker
	Publisher   Publisher
	Metrics     Metrics
	Topics      Topics
	Log         interaction.Repository
	Logger      *slog.Logger
}

// New creates an engine. Logger may be nil.
func New(deps Deps, opts Options) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "wav"
	}
	return &Engine{
		home:        deps.Home,
		planner:     deps.Planner,
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		checker:     deps.Checker,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		topics:      deps.Topics,
		log:         deps.Log,
		logger:      logger,
		opts:        opts,
	}
}

// Handle runs one request end to end and returns its summary. The
// returned error is non-nil only when the request was rejected before
// admission; every admitted request gets a summary, with Summary.Error
// carrying request-level failures.
func (e *Engine) Handle(ctx context.Context, req Request) (*Summary, error) {
	switch req.Source {
	case SourceText, SourceTranscribe:
	case SourceAudioTrigger:
		if !e.audioMu.TryLock() {
			e.logger.Warn("audio trigger rejected, another in flight")
			return nil, ErrBusy
		}
		defer e.audioMu.Unlock()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, req.Source)
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	start := time.Now()
	sum := &Summary{
		RequestID: req.ID,
		Source:    req.Source,
		Results:   []ExecutionResult{},
		CreatedAt: start.UTC(),
	}
	defer e.finish(sum, start)

	e.publishActivity(req.ID, "processing")

	switch req.Source {
	case SourceText:
		sum.InputText = req.Text
		e.runText(ctx, req.ModelID, req.Text, sum)
	case SourceTranscribe:
		audio, err := e.recorder.ReadAsset()
		if err != nil {
			sum.Error = err.Error()
			return sum, nil
		}
		text, err := e.transcriber.Transcribe(ctx, audio)
		if err != nil {
			sum.Error = err.Error()
			return sum, nil
		}
		sum.InputText = text
		e.runText(ctx, req.ModelID, text, sum)
	case SourceAudioTrigger:
		e.runAudio(ctx, req.ModelID, sum)
	}
	return sum, nil
}

// Last returns the most recent summary, nil when none exists yet.
func (e *Engine) Last() *Summary {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// StartRecording begins a capture session.
func (e *Engine) StartRecording() error {
	return e.recorder.Start()
}

// StopRecording ends the capture session and records session
// telemetry.
func (e *Engine) StopRecording() error {
	err := e.recorder.Stop()
	outcome := "captured"
	if err != nil {
		outcome = "failed"
	}
	e.metrics.WriteCaptureSession(outcome, e.recorder.LastDuration(), e.recorder.LastSize())
	return err
}

// RecordingState reports the capture controller's lifecycle state.
func (e *Engine) RecordingState() capture.State {
	return e.recorder.State()
}

// ResetRecording clears a failed capture session.
func (e *Engine) ResetRecording() {
	e.recorder.Reset()
}

// runText drives the text pathway: fresh registry snapshot, optional
// candidate reduction, model proposal, execution. An empty modelID
// selects the configured default model.
func (e *Engine) runText(ctx context.Context, modelID, text string, sum *Summary) {
	snap, err := e.home.Snapshot(ctx)
	if err != nil {
		sum.Error = fmt.Sprintf("registry snapshot: %v", err)
		return
	}

	contextJSON := e.buildContext(ctx, text, snap)

	sum.Model = modelID
	if sum.Model == "" {
		sum.Model = e.planner.Model()
	}
	callStart := time.Now()
	p, usage, err := e.planner.ProposeFromText(ctx, modelID, text, contextJSON)
	e.recordModelCall(sum.Model, sum.Source, callStart, usage)
	sum.Usage = usage
	if err != nil {
		sum.Error = err.Error()
		return
	}

	e.execute(ctx, snap, p, sum)
}

// runAudio drives the direct-audio pathway. The captured asset is
// consumed here; a failure after this point cannot be retried against
// the same recording.
func (e *Engine) runAudio(ctx context.Context, modelID string, sum *Summary) {
	audio, err := e.recorder.ReadAsset()
	if err != nil {
		sum.Error = err.Error()
		return
	}

	snap, err := e.home.Snapshot(ctx)
	if err != nil {
		sum.Error = fmt.Sprintf("registry snapshot: %v", err)
		return
	}

	sum.Model = modelID
	if sum.Model == "" {
		sum.Model = e.planner.AudioModel()
	}
	callStart := time.Now()
	p, usage, err := e.planner.ProposeFromAudio(ctx, modelID, audio, e.opts.AudioFormat, llm.BuildContext(snap))
	e.recordModelCall(sum.Model, sum.Source, callStart, usage)
	sum.Usage = usage
	if err != nil {
		sum.Error = err.Error()
		return
	}

	e.execute(ctx, snap, p, sum)
}

// buildContext returns the model context for a text request. When the
// two-step pre-pass is enabled and succeeds, the context is filtered to
// the candidate entities; any router failure falls back to the full
// context rather than failing the request.
func (e *Engine) buildContext(ctx context.Context, text string, snap *homeassistant.Snapshot) string {
	if !e.opts.TwoStep {
		return llm.BuildContext(snap)
	}
	entities, _, err := e.planner.ReduceCandidates(ctx, text, snap)
	if err != nil || len(entities) == 0 {
		e.logger.Warn("candidate reduction unavailable, using full context", "error", err)
		return llm.BuildContext(snap)
	}
	return llm.BuildContextFiltered(snap, entities)
}

// execute applies the plan one action at a time. Policy is re-checked
// per action against the snapshot taken for this request. A failing
// action never stops its siblings. Device calls run on a
// cancellation-immune context so a client hangup cannot leave the home
// half-toggled; cancellation observed before the first call discards
// the plan instead.
func (e *Engine) execute(ctx context.Context, snap *homeassistant.Snapshot, p *plan.Plan, sum *Summary) {
	sum.Explanation = p.Explanation

	if ctx.Err() != nil {
		sum.Explanation = ""
		sum.Error = "request cancelled before execution"
		return
	}

	deviceCtx := context.WithoutCancel(ctx)
	for _, action := range p.Actions {
		res := ExecutionResult{Action: action}

		if dec := e.checker.Check(action, snap); !dec.Allow {
			res.Outcome = OutcomeDenied
			res.Reason = dec.Reason
			e.metrics.WriteActionOutcome(action.Domain, action.Service, string(OutcomeDenied), dec.Reason, 0)
			e.logger.Info("action denied", "target", action.Target(), "entity", action.EntityID, "reason", dec.Reason)
			sum.Results = append(sum.Results, res)
			continue
		}

		callStart := time.Now()
		err := e.home.Invoke(deviceCtx, action.Domain, action.Service, action.EntityID, action.Data)
		latency := time.Since(callStart)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Reason = err.Error()
			e.logger.Error("action failed", "target", action.Target(), "entity", action.EntityID, "error", err)
		} else {
			res.Outcome = OutcomeApplied
			e.logger.Info("action applied", "target", action.Target(), "entity", action.EntityID)
		}
		e.metrics.WriteActionOutcome(action.Domain, action.Service, string(res.Outcome), res.Reason, latency)
		sum.Results = append(sum.Results, res)
	}
}

// finish closes out a request: measures latency, stores the summary as
// the last response, publishes it exactly once and persists it. Runs on
// every admitted request, success or failure.
func (e *Engine) finish(sum *Summary, start time.Time) {
	sum.LatencyMs = time.Since(start).Milliseconds()

	e.lastMu.Lock()
	e.last = sum
	e.lastMu.Unlock()

	payload, err := json.Marshal(sum)
	if err != nil {
		e.logger.Error("summary not serializable", "request_id", sum.RequestID, "error", err)
	} else if err := e.publisher.PublishRetained(e.topics.AssistantResponse(), payload); err != nil {
		e.logger.Error("summary publish failed", "request_id", sum.RequestID, "error", err)
	}
	e.publishActivity(sum.RequestID, "done")

	applied, denied, failed := sum.counts()
	row := &interaction.Interaction{
		RequestID:      sum.RequestID,
		Source:         string(sum.Source),
		InputText:      sum.InputText,
		Explanation:    sum.Explanation,
		ActionsApplied: applied,
		ActionsDenied:  denied,
		ActionsFailed:  failed,
		Error:          sum.Error,
		Model:          sum.Model,
		LatencyMs:      sum.LatencyMs,
		CreatedAt:      sum.CreatedAt,
	}
	if sum.Usage != nil {
		row.PromptTokens = sum.Usage.PromptTokens
		row.CompletionTokens = sum.Usage.CompletionTokens
		row.CachedTokens = sum.Usage.CachedTokens
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.log.Create(ctx, row); err != nil {
		e.logger.Error("interaction not persisted", "request_id", sum.RequestID, "error", err)
	}
}

func (e *Engine) recordModelCall(model string, source Source, start time.Time, usage *llm.Usage) {
	var p, c, cached int
	if usage != nil {
		p, c, cached = usage.PromptTokens, usage.CompletionTokens, usage.CachedTokens
	}
	e.metrics.WriteModelCall(model, string(source), time.Since(start), p, c, cached)
}

func (e *Engine) publishActivity(requestID, phase string) {
	payload, _ := json.Marshal(map[string]string{
		"request_id": requestID,
		"phase":      phase,
	})
	if err := e.publisher.Publish(e.topics.AssistantActivity(), payload, 0, false); err != nil {
		e.logger.Debug("activity publish failed", "error", err)
	}
}
