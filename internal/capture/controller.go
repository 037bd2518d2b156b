package capture

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// State identifies where the recorder is in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateCaptured  State = "captured"
	StateFailed    State = "failed"
)

// Logger receives lifecycle events. All methods must be safe for
// concurrent use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config describes the recorder process and its supervision limits.
type Config struct {
	// Binary is the recorder executable, typically ffmpeg.
	Binary string

	// Args are passed verbatim to Binary. See FFmpegArgs.
	Args []string

	// AssetPath is where the recorder writes the captured audio. The
	// controller removes any stale file here before starting.
	AssetPath string

	// GracefulTimeout bounds the quit-key/SIGTERM phase of a stop
	// before escalating to SIGKILL.
	GracefulTimeout time.Duration

	// SupervisorTimeout forces the session to Failed when no state
	// transition happens within this window. Guards against a wedged
	// recorder holding the pipeline hostage.
	SupervisorTimeout time.Duration
}

// FFmpegArgs builds the argument list for an ALSA mono 16 kHz signed
// 16-bit capture written to assetPath.
func FFmpegArgs(device string, sampleRate int, maxDuration time.Duration, assetPath string) []string {
	args := []string{
		"-y",
		"-f", "alsa",
		"-i", device,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-sample_fmt", "s16",
	}
	if maxDuration > 0 {
		args = append(args, "-t", strconv.Itoa(int(maxDuration.Seconds())))
	}
	return append(args, assetPath)
}

// Controller runs one recorder process at a time and exposes the
// captured asset exactly once.
type Controller struct {
	cfg    Config
	logger Logger

	mu         sync.Mutex
	state      State
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	exited     chan error
	startedAt  time.Time
	duration   time.Duration
	size       int64
	lastErr    error
	supervisor *time.Timer
	session    int
	onChange   func(State)
}

// New returns an idle controller. Logger may be nil.
func New(cfg Config, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 3 * time.Second
	}
	if cfg.SupervisorTimeout <= 0 {
		cfg.SupervisorTimeout = 330 * time.Second
	}
	return &Controller{
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// SetOnChange registers a callback invoked after every state
// transition. The callback runs on its own goroutine and must not call
// back into the controller's mutating methods.
func (c *Controller) SetOnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that moved the controller to Failed, or
// nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastDuration returns the wall-clock length of the most recent
// completed session.
func (c *Controller) LastDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// LastSize returns the byte size of the most recently captured asset,
// zero when the last session produced none.
func (c *Controller) LastSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Start launches the recorder. Only legal from Idle; a start while
// Recording returns ErrAlreadyRecording and leaves the session alone.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRecording, StateStopping:
		return ErrAlreadyRecording
	case StateIdle:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, c.state)
	}

	if err := os.MkdirAll(filepath.Dir(c.cfg.AssetPath), 0o755); err != nil {
		return fmt.Errorf("%w: create asset dir: %v", ErrCaptureFailed, err)
	}
	// A stale asset from an abandoned session must not masquerade as
	// this session's output.
	if err := os.Remove(c.cfg.AssetPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove stale asset: %v", ErrCaptureFailed, err)
	}

	cmd := exec.Command(c.cfg.Binary, c.cfg.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", ErrCaptureFailed, err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("%w: start %s: %v", ErrCaptureFailed, c.cfg.Binary, err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.startedAt = time.Now()
	c.lastErr = nil
	c.session++
	session := c.session

	exited := make(chan error, 1)
	c.exited = exited
	go func() {
		err := cmd.Wait()
		exited <- err
		c.onExit(session, err)
	}()

	c.transitionLocked(StateRecording)
	c.logger.Info("recording started", "binary", c.cfg.Binary, "pid", cmd.Process.Pid, "asset", c.cfg.AssetPath)
	return nil
}

// Stop asks the recorder to finish and verifies the asset. Only legal
// from Recording; a stop while Idle returns ErrNotRecording.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRecording {
		defer c.mu.Unlock()
		if c.state == StateIdle || c.state == StateCaptured {
			return ErrNotRecording
		}
		return fmt.Errorf("%w: %s", ErrInvalidState, c.state)
	}

	cmd := c.cmd
	stdin := c.stdin
	exited := c.exited
	c.transitionLocked(StateStopping)
	c.mu.Unlock()

	// ffmpeg finalizes the container on 'q'. Escalate if it ignores us.
	if stdin != nil {
		if _, err := stdin.Write([]byte("q\n")); err != nil {
			c.logger.Warn("quit key not delivered", "error", err)
		}
		stdin.Close()
	}

	var exitErr error
	select {
	case exitErr = <-exited:
	case <-time.After(c.cfg.GracefulTimeout):
		c.logger.Warn("recorder ignored quit, sending SIGTERM", "pid", cmd.Process.Pid)
		syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		select {
		case exitErr = <-exited:
		case <-time.After(c.cfg.GracefulTimeout):
			c.logger.Error("recorder ignored SIGTERM, sending SIGKILL", "pid", cmd.Process.Pid)
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			exitErr = <-exited
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStopping {
		// Supervisor or reset intervened while we waited.
		return fmt.Errorf("%w: %s", ErrInvalidState, c.state)
	}
	c.cmd = nil
	c.stdin = nil
	c.duration = time.Since(c.startedAt)
	c.size = 0

	info, statErr := os.Stat(c.cfg.AssetPath)
	if statErr != nil || info.Size() == 0 {
		err := fmt.Errorf("%w: no usable asset after stop", ErrCaptureFailed)
		if exitErr != nil {
			err = fmt.Errorf("%w: recorder exit: %v", ErrCaptureFailed, exitErr)
		}
		c.failLocked(err)
		return err
	}

	c.size = info.Size()
	c.transitionLocked(StateCaptured)
	c.logger.Info("recording captured", "asset", c.cfg.AssetPath, "bytes", info.Size(), "duration", c.duration)
	return nil
}

// ReadAsset returns the captured audio and hands ownership to the
// caller. The controller returns to Idle and forgets the asset; a
// second read reports ErrNoAsset.
func (c *Controller) ReadAsset() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCaptured {
		return nil, ErrNoAsset
	}

	data, err := os.ReadFile(c.cfg.AssetPath)
	if err != nil {
		err = fmt.Errorf("%w: read asset: %v", ErrCaptureFailed, err)
		c.failLocked(err)
		return nil, err
	}
	if rmErr := os.Remove(c.cfg.AssetPath); rmErr != nil {
		c.logger.Warn("asset not removed after handoff", "error", rmErr)
	}

	c.transitionLocked(StateIdle)
	return data, nil
}

// Reset clears a Failed session so a new one can start. Kills any
// straggling recorder process. Legal from any state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil && c.cmd.Process != nil {
		syscall.Kill(-c.cmd.Process.Pid, syscall.SIGKILL)
	}
	c.cmd = nil
	c.stdin = nil
	c.lastErr = nil
	if c.state != StateIdle {
		c.transitionLocked(StateIdle)
	}
	c.logger.Info("capture controller reset")
}

// onExit runs when the recorder process terminates on its own, i.e.
// without Stop driving it. A clean exit that left a usable asset is a
// completed capture: ffmpeg stops by itself once the -t limit elapses.
// Anything else is a failure.
func (c *Controller) onExit(session int, exitErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session || c.state != StateRecording {
		return
	}
	c.cmd = nil
	c.stdin = nil
	c.duration = time.Since(c.startedAt)
	c.size = 0

	if exitErr == nil {
		if info, statErr := os.Stat(c.cfg.AssetPath); statErr == nil && info.Size() > 0 {
			c.size = info.Size()
			c.transitionLocked(StateCaptured)
			c.logger.Info("recording ended by recorder",
				"asset", c.cfg.AssetPath, "bytes", info.Size(), "duration", c.duration)
			return
		}
	}

	err := fmt.Errorf("%w: recorder exited unexpectedly", ErrCaptureFailed)
	if exitErr != nil {
		err = fmt.Errorf("%w: recorder exited unexpectedly: %v", ErrCaptureFailed, exitErr)
	}
	c.failLocked(err)
	c.logger.Error("recorder died mid-session", "error", exitErr)
}

// failLocked moves to Failed and records the cause. Caller holds mu.
func (c *Controller) failLocked(err error) {
	c.lastErr = err
	c.transitionLocked(StateFailed)
}

// transitionLocked swaps state, re-arms or disarms the supervisor and
// fires the change callback. Caller holds mu.
func (c *Controller) transitionLocked(next State) {
	c.state = next

	if c.supervisor != nil {
		c.supervisor.Stop()
		c.supervisor = nil
	}
	switch next {
	case StateRecording, StateStopping:
		session := c.session
		c.supervisor = time.AfterFunc(c.cfg.SupervisorTimeout, func() {
			c.superviseExpired(session)
		})
	}

	if c.onChange != nil {
		fn := c.onChange
		go fn(next)
	}
}

// superviseExpired fires when a session sat in a non-terminal state for
// too long. It kills the recorder and marks the session Failed.
func (c *Controller) superviseExpired(session int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session {
		return
	}
	if c.state != StateRecording && c.state != StateStopping {
		return
	}
	c.logger.Error("supervisor timeout, killing recorder", "state", c.state)
	if c.cmd != nil && c.cmd.Process != nil {
		syscall.Kill(-c.cmd.Process.Pid, syscall.SIGKILL)
	}
	c.cmd = nil
	c.stdin = nil
	c.failLocked(fmt.Errorf("%w: supervisor timeout in state %s", ErrCaptureFailed, c.state))
}
