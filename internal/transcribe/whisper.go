package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
)

// Transcriber converts captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Whisper shells out to the whisper.cpp CLI. The CLI writes a sibling
// .txt file next to the requested output base, which is read back and
// trimmed.
type Whisper struct {
	binary    string
	modelPath string
	outputDir string
	timeout   time.Duration
}

// New builds a Whisper transcriber from configuration.
func New(cfg config.TranscribeConfig) *Whisper {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Whisper{
		binary:    cfg.Binary,
		modelPath: cfg.ModelPath,
		outputDir: cfg.OutputDir,
		timeout:   timeout,
	}
}

// Transcribe writes audio to a scratch file, runs the CLI against it
// and returns the trimmed transcript. Scratch files are removed on
// return.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: no audio data", ErrTranscription)
	}
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output dir: %v", ErrTranscription, err)
	}

	audioFile, err := os.CreateTemp(w.outputDir, "request-*.wav")
	if err != nil {
		return "", fmt.Errorf("%w: scratch file: %v", ErrTranscription, err)
	}
	audioPath := audioFile.Name()
	defer os.Remove(audioPath)

	if _, err := audioFile.Write(audio); err != nil {
		audioFile.Close()
		return "", fmt.Errorf("%w: write scratch file: %v", ErrTranscription, err)
	}
	if err := audioFile.Close(); err != nil {
		return "", fmt.Errorf("%w: close scratch file: %v", ErrTranscription, err)
	}

	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	txtPath := outBase + ".txt"
	defer os.Remove(txtPath)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.binary,
		"-m", w.modelPath,
		"-f", audioPath,
		"-otxt",
		"-of", outBase,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s: %v: %s", ErrTranscription, w.binary, err, excerpt(out))
	}

	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("%w: transcript file missing: %v", ErrTranscription, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func excerpt(out []byte) string {
	const max = 256
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		s = s[:max]
	}
	return s
}
