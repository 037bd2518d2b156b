// Package capture supervises a single audio recorder process and the
// asset it produces.
//
// The lifecycle is a strict state machine: Idle -> Recording ->
// Stopping -> Captured, with Failed reachable from any active state.
// Recording can reach Captured directly when the recorder stops by
// itself at the configured duration limit and leaves a usable asset.
// Exactly one asset exists per session and ownership transfers to the
// first ReadAsset caller; after the handoff the controller is Idle
// again and the asset is gone. Failed is sticky until Reset, so a
// broken microphone cannot silently feed stale audio into a new
// request.
//
// A supervisor timer bounds every non-terminal state. If the recorder
// wedges, the session is killed and marked Failed rather than blocking
// the pipeline indefinitely.
package capture
