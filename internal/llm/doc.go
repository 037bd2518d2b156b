// Package llm wraps the language model endpoints behind one client.
//
// Three call shapes exist: ProposeFromText (typed commands, JSON
// response mode), ProposeFromAudio (captured recordings as an
// input_audio content part with a forced propose_actions tool call),
// and ReduceCandidates (an optional cheap pre-pass that narrows the
// registry before the main call).
//
// Both propose pathways embed the identical compact context produced
// by BuildContext; divergent context between pathways is a defect, and
// the context tests pin this down. Audio payloads are validated
// locally (format, non-empty, 15 MiB ceiling) before any bytes leave
// the process.
package llm
