package llm

import (
	"fmt"
	"strings"
)

// MaxAudioSize is the hard ceiling on audio payloads, enforced locally
// before transmission.
const MaxAudioSize = 15 * 1024 * 1024 // 15 MiB

// supportedAudioFormats are the containers/codecs the audio endpoint
// accepts.
var supportedAudioFormats = map[string]struct{}{
	"wav":   {},
	"mp3":   {},
	"flac":  {},
	"opus":  {},
	"pcm16": {},
	"webm":  {},
	"ogg":   {},
}

// NormalizeFormat strips leading dots and lowercases, so ".WAV" and
// "wav" are the same format.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimLeft(format, "."))
}

// ValidateAudio rejects payloads that must never reach the remote
// endpoint: empty data, unsupported formats, and oversize files.
// All failures wrap ErrInvalidAudio.
func ValidateAudio(data []byte, format string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: audio data is empty", ErrInvalidAudio)
	}

	normalized := NormalizeFormat(format)
	if _, ok := supportedAudioFormats[normalized]; !ok {
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidAudio, normalized)
	}

	if len(data) > MaxAudioSize {
		return fmt.Errorf("%w: %d bytes exceeds %d byte ceiling", ErrInvalidAudio, len(data), MaxAudioSize)
	}
	return nil
}
