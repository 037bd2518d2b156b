// Package transcribe turns captured audio into text via a local
// whisper.cpp CLI. It backs the legacy transcribe-then-text pathway;
// the direct-audio pathway bypasses it entirely.
package transcribe
