package transcribe

import "errors"

var (
	// ErrTranscription covers transcriber process failures and missing
	// output.
	ErrTranscription = errors.New("transcribe: transcription failed")

	// ErrEmptyTranscript reports a run that produced no usable text.
	ErrEmptyTranscript = errors.New("transcribe: empty transcript")
)
