package llm

import "errors"

// Sentinel errors for model calls.
var (
	// ErrModelCall covers network, auth, quota, and timeout failures
	// talking to the model endpoint.
	ErrModelCall = errors.New("llm: model call failed")

	// ErrEmptyResponse indicates the endpoint answered but carried no
	// usable choice.
	ErrEmptyResponse = errors.New("llm: empty model response")

	// ErrInvalidAudio indicates the audio payload was rejected locally,
	// before any bytes went to the remote endpoint.
	ErrInvalidAudio = errors.New("llm: invalid audio payload")
)
