package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// PlaybackError reports a failure to open, decode, or render an asset.
type PlaybackError struct {
	Op   string
	Path string
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Output is the device leg of a session.
type Output interface {
	Start()
	// Wait blocks until playback drains, fails, or the output is closed.
	Wait() error
	// Close stops playback and releases the device. It must unblock Wait.
	Close() error
}

// Device opens an output that pulls samples from stage.
type Device interface {
	Open(stage Stage) (Output, error)
}

// session is one source → stage → output chain. release runs at most once.
type session struct {
	id     string
	path   string
	source io.Closer
	stage  Stage
	output Output

	once sync.Once
	err  error
}

// release tears down device, source, then stage. Every leg is attempted
// regardless of earlier failures.
func (s *session) release() error {
	s.once.Do(func() {
		var errs []error
		if err := s.output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close device: %w", err))
		}
		if err := s.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release source: %w", err))
		}
		s.stage.Disconnect()
		s.err = errors.Join(errs...)
	})
	return s.err
}

// Channel owns the single playback slot.
type Channel struct {
	logger *slog.Logger
	device Device

	openSource func(string) (io.ReadSeekCloser, error)
	newStage   func(io.ReadSeeker) (Stage, error)

	mu        sync.Mutex
	current   *session
	onFailure func(*PlaybackError)
}

// NewChannel creates a channel that renders through device.
func NewChannel(logger *slog.Logger, device Device) *Channel {
	return &Channel{
		logger: logger,
		device: device,
		openSource: func(path string) (io.ReadSeekCloser, error) {
			return os.Open(path)
		},
		newStage: NewWAVStage,
	}
}

// OnFailure registers fn for asynchronous rendering failures of a live session.
func (c *Channel) OnFailure(fn func(*PlaybackError)) {
	c.mu.Lock()
	c.onFailure = fn
	c.mu.Unlock()
}

// Play supersedes any live session and starts rendering path. It returns once
// playback has started; on error no session is left behind.
func (c *Channel) Play(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked("superseded")

	src, err := c.openSource(path)
	if err != nil {
		return &PlaybackError{Op: "open", Path: path, Err: err}
	}
	stage, err := c.newStage(src)
	if err != nil {
		_ = src.Close()
		return &PlaybackError{Op: "decode", Path: path, Err: err}
	}
	out, err := c.device.Open(stage)
	if err != nil {
		stage.Disconnect()
		_ = src.Close()
		return &PlaybackError{Op: "open device", Path: path, Err: err}
	}

	s := &session{
		id:     uuid.NewString(),
		path:   path,
		source: src,
		stage:  stage,
		output: out,
	}
	c.current = s
	out.Start()
	go c.await(s)

	c.debug("playback started", "session", s.id, "path", path)
	return nil
}

// Stop tears down the live session, if any.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked("stopped")
}

// Active reports whether a session currently holds the slot.
func (c *Channel) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// SessionID returns the live session ID, or "" when idle.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.id
}

// await clears the slot when s finishes on its own. A superseded session is
// already released and must not touch the slot.
func (c *Channel) await(s *session) {
	waitErr := s.output.Wait()

	c.mu.Lock()
	if c.current != s {
		c.mu.Unlock()
		return
	}
	c.current = nil
	if err := s.release(); err != nil {
		c.warn("playback teardown incomplete", "session", s.id, "error", err.Error())
	}
	onFailure := c.onFailure
	c.mu.Unlock()

	if waitErr == nil {
		c.debug("playback complete", "session", s.id)
		return
	}

	perr := &PlaybackError{Op: "render", Path: s.path, Err: waitErr}
	c.warn("playback failed", "session", s.id, "error", perr.Error())
	if onFailure != nil {
		onFailure(perr)
	}
}

func (c *Channel) teardownLocked(reason string) {
	s := c.current
	if s == nil {
		return
	}
	c.current = nil
	if err := s.release(); err != nil {
		c.warn("playback teardown incomplete", "session", s.id, "reason", reason, "error", err.Error())
		return
	}
	c.debug("playback torn down", "session", s.id, "reason", reason)
}

func (c *Channel) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Channel) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
