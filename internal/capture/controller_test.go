package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// scriptConfig builds a controller config whose recorder is a shell
// script standing in for ffmpeg.
func scriptConfig(t *testing.T, script string) Config {
	t.Helper()
	return Config{
		Binary:            "/bin/sh",
		Args:              []string{"-c", script},
		AssetPath:         filepath.Join(t.TempDir(), "current_request.wav"),
		GracefulTimeout:   500 * time.Millisecond,
		SupervisorTimeout: 10 * time.Second,
	}
}

// wellBehavedRecorder writes the asset then waits for the quit key,
// like ffmpeg reading 'q' from stdin.
func wellBehavedRecorder(assetPath string) string {
	return fmt.Sprintf("printf audio-bytes > %s; read line", assetPath)
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state = %s, never reached %s", c.State(), want)
}

func TestController_HappyPath(t *testing.T) {
	cfg := scriptConfig(t, "")
	cfg.Args = []string{"-c", wellBehavedRecorder(cfg.AssetPath)}
	c := New(cfg, nil)

	if c.State() != StateIdle {
		t.Fatalf("initial state = %s, want %s", c.State(), StateIdle)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if c.State() != StateRecording {
		t.Fatalf("state after start = %s, want %s", c.State(), StateRecording)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.State() != StateCaptured {
		t.Fatalf("state after stop = %s, want %s", c.State(), StateCaptured)
	}

	data, err := c.ReadAsset()
	if err != nil {
		t.Fatalf("ReadAsset() error = %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("asset = %q, want %q", data, "audio-bytes")
	}
	if c.State() != StateIdle {
		t.Fatalf("state after read = %s, want %s", c.State(), StateIdle)
	}
	if _, err := os.Stat(cfg.AssetPath); !os.IsNotExist(err) {
		t.Fatalf("asset file still present after handoff")
	}
	if c.LastDuration() <= 0 {
		t.Fatalf("LastDuration() = %v, want > 0", c.LastDuration())
	}
}

func TestController_ReadAssetIsExclusive(t *testing.T) {
	cfg := scriptConfig(t, "")
	cfg.Args = []string{"-c", wellBehavedRecorder(cfg.AssetPath)}
	c := New(cfg, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := c.ReadAsset(); err != nil {
		t.Fatalf("first ReadAsset() error = %v", err)
	}
	if _, err := c.ReadAsset(); !errors.Is(err, ErrNoAsset) {
		t.Fatalf("second ReadAsset() error = %v, want ErrNoAsset", err)
	}
}

func TestController_StartWhileRecording(t *testing.T) {
	cfg := scriptConfig(t, "")
	cfg.Args = []string{"-c", wellBehavedRecorder(cfg.AssetPath)}
	c := New(cfg, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestController_StopWhileIdle(t *testing.T) {
	c := New(scriptConfig(t, "read line"), nil)
	if err := c.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop() error = %v, want ErrNotRecording", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %s, want %s", c.State(), StateIdle)
	}
}

func TestController_ReadAssetWhileIdle(t *testing.T) {
	c := New(scriptConfig(t, "read line"), nil)
	if _, err := c.ReadAsset(); !errors.Is(err, ErrNoAsset) {
		t.Fatalf("ReadAsset() error = %v, want ErrNoAsset", err)
	}
}

func TestController_RecorderDiesImmediately(t *testing.T) {
	c := New(scriptConfig(t, "exit 1"), nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, c, StateFailed)
	if err := c.LastError(); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("LastError() = %v, want ErrCaptureFailed", err)
	}

	if err := c.Start(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Start() from failed error = %v, want ErrInvalidState", err)
	}

	c.Reset()
	if c.State() != StateIdle {
		t.Fatalf("state after reset = %s, want %s", c.State(), StateIdle)
	}
	if c.LastError() != nil {
		t.Fatalf("LastError() after reset = %v, want nil", c.LastError())
	}
}

func TestController_DurationLimitKeepsAsset(t *testing.T) {
	// Recorder writes the asset and exits on its own, the way ffmpeg
	// finishes when -t elapses.
	cfg := scriptConfig(t, "")
	cfg.Args = []string{"-c", fmt.Sprintf("printf audio-bytes > %s; exit 0", cfg.AssetPath)}
	c := New(cfg, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, c, StateCaptured)
	if c.LastSize() != int64(len("audio-bytes")) {
		t.Fatalf("LastSize() = %d, want %d", c.LastSize(), len("audio-bytes"))
	}

	if err := c.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop() after self-stop error = %v, want ErrNotRecording", err)
	}

	data, err := c.ReadAsset()
	if err != nil {
		t.Fatalf("ReadAsset() error = %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("asset = %q, want %q", data, "audio-bytes")
	}
	if c.State() != StateIdle {
		t.Fatalf("state after read = %s, want %s", c.State(), StateIdle)
	}
}

func TestController_CleanExitWithoutAssetFails(t *testing.T) {
	c := New(scriptConfig(t, "exit 0"), nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, c, StateFailed)
	if err := c.LastError(); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("LastError() = %v, want ErrCaptureFailed", err)
	}
}

func TestController_StopWithNoAssetFails(t *testing.T) {
	// Recorder honors the quit key but never writes a file.
	c := New(scriptConfig(t, "read line"), nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Stop() error = %v, want ErrCaptureFailed", err)
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %s, want %s", c.State(), StateFailed)
	}
}

func TestController_StopEscalatesWhenQuitIgnored(t *testing.T) {
	cfg := scriptConfig(t, "")
	// Writes the asset but ignores stdin, forcing the signal path.
	cfg.Args = []string{"-c", fmt.Sprintf("printf audio > %s; exec sleep 30", cfg.AssetPath)}
	cfg.GracefulTimeout = 200 * time.Millisecond
	c := New(cfg, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.State() != StateCaptured {
		t.Fatalf("state = %s, want %s", c.State(), StateCaptured)
	}
}

func TestController_SupervisorTimeout(t *testing.T) {
	cfg := scriptConfig(t, "sleep 30")
	cfg.SupervisorTimeout = 100 * time.Millisecond
	c := New(cfg, nil)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, c, StateFailed)
	if err := c.LastError(); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("LastError() = %v, want ErrCaptureFailed", err)
	}
}

func TestController_StaleAssetRemovedOnStart(t *testing.T) {
	c := New(scriptConfig(t, "read line"), nil)
	if err := os.WriteFile(c.cfg.AssetPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed stale asset: %v", err)
	}

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := os.Stat(c.cfg.AssetPath); !os.IsNotExist(err) {
		t.Fatalf("stale asset survived start")
	}
	c.Reset()
}

func TestController_OnChangeNotified(t *testing.T) {
	cfg := scriptConfig(t, "")
	cfg.Args = []string{"-c", wellBehavedRecorder(cfg.AssetPath)}
	c := New(cfg, nil)

	states := make(chan State, 8)
	c.SetOnChange(func(s State) { states <- s })

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	seen := map[State]bool{}
	timeout := time.After(2 * time.Second)
	for !seen[StateCaptured] {
		select {
		case s := <-states:
			seen[s] = true
		case <-timeout:
			t.Fatalf("transitions seen = %v, captured never reported", seen)
		}
	}
	for _, want := range []State{StateRecording, StateStopping, StateCaptured} {
		if !seen[want] {
			t.Fatalf("transition %s not reported", want)
		}
	}
}

func TestFFmpegArgs(t *testing.T) {
	got := FFmpegArgs("plughw:3,0", 16000, 300*time.Second, "/tmp/x.wav")
	want := []string{"-y", "-f", "alsa", "-i", "plughw:3,0", "-ac", "1", "-ar", "16000", "-sample_fmt", "s16", "-t", "300", "/tmp/x.wav"}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
