package capture

import "errors"

// Sentinel errors for the recording state machine.
var (
	// ErrAlreadyRecording reports a start call while a recording is in
	// progress. Not fatal; the running session is untouched.
	ErrAlreadyRecording = errors.New("capture: already recording")

	// ErrNotRecording reports a stop call with no recording in
	// progress. Not fatal.
	ErrNotRecording = errors.New("capture: not recording")

	// ErrNoAsset reports a read with no captured asset available,
	// including a second read after ownership already transferred.
	ErrNoAsset = errors.New("capture: no asset available")

	// ErrCaptureFailed covers process spawn/exit failures and a missing
	// or empty asset after stop.
	ErrCaptureFailed = errors.New("capture: capture failed")

	// ErrInvalidState reports an operation that is not legal in the
	// controller's current state, e.g. start while Failed.
	ErrInvalidState = errors.New("capture: invalid state for operation")
)
