// Package orchestrator runs assistant requests end to end: it takes a
// fresh registry snapshot, asks the model for an action plan, checks
// each action against policy and executes the survivors one at a time.
//
// Three pathways feed the engine. Text commands go straight to the
// planner. The audio trigger hands the captured asset to an
// audio-capable model. The transcribe pathway converts the asset to
// text locally and then joins the text pathway, so both text-shaped
// routes share one code path and one context builder.
//
// Failure handling is deliberately asymmetric. A failure before
// execution (capture, transcription, model call, schema) aborts the
// whole request with an empty result list. Once execution starts, each
// action succeeds or fails on its own and device calls are immune to
// request cancellation, so a client hangup cannot leave the home in a
// half-applied state.
//
// Every admitted request produces exactly one summary, published
// retained to the broker and persisted to the interaction log.
package orchestrator
