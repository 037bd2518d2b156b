package orchestrator

import "errors"

var (
	// ErrBusy reports an audio-trigger request arriving while another
	// is still in flight. The request is rejected before admission, so
	// no summary is produced for it.
	ErrBusy = errors.New("orchestrator: audio request already in flight")

	// ErrUnknownSource reports a request with an unrecognized source.
	ErrUnknownSource = errors.New("orchestrator: unknown request source")
)
