package orchestrator

import (
	"time"

	"github.com/hearth-home/hearth-core/internal/llm"
	"github.com/hearth-home/hearth-core/internal/plan"
)

// Source identifies which pathway a request arrived on.
type Source string

const (
	// SourceText is a typed natural-language command.
	SourceText Source = "text"

	// SourceAudioTrigger sends the captured asset straight to the
	// audio-capable model.
	SourceAudioTrigger Source = "audio"

	// SourceTranscribe runs the captured asset through local
	// transcription, then continues on the text pathway.
	SourceTranscribe Source = "transcribe"
)

// Outcome is the per-action execution result.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeDenied  Outcome = "denied"
	OutcomeFailed  Outcome = "failed"
)

// Request is one assistant invocation.
type Request struct {
	// ID is assigned when empty.
	ID string

	Source Source

	// Text carries the command for SourceText. Ignored for the
	// audio-backed sources, which read the captured asset instead.
	Text string

	// ModelID overrides the configured model for this request. Empty
	// selects the default for the pathway.
	ModelID string
}

// ExecutionResult records what happened to a single proposed action.
type ExecutionResult struct {
	Action  plan.Action `json:"action"`
	Outcome Outcome     `json:"outcome"`

	// Reason explains a denial or failure, empty when applied.
	Reason string `json:"reason,omitempty"`
}

// Summary is the single authoritative record of a request. Every
// admitted request produces exactly one, whether it succeeded, was
// denied in part, or failed before any action ran.
type Summary struct {
	RequestID   string            `json:"request_id"`
	Source      Source            `json:"source"`
	InputText   string            `json:"input_text,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Results     []ExecutionResult `json:"results"`

	// Error is set when the request failed before execution, e.g. a
	// capture, transcription, model or schema failure. Per-action
	// failures appear in Results instead.
	Error string `json:"error,omitempty"`

	Model     string     `json:"model,omitempty"`
	Usage     *llm.Usage `json:"usage,omitempty"`
	LatencyMs int64      `json:"latency_ms"`
	CreatedAt time.Time  `json:"created_at"`
}

// counts tallies results by outcome.
func (s *Summary) counts() (applied, denied, failed int) {
	for _, r := range s.Results {
		switch r.Outcome {
		case OutcomeApplied:
			applied++
		case OutcomeDenied:
			denied++
		case OutcomeFailed:
			failed++
		}
	}
	return applied, denied, failed
}
