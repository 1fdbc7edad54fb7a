// Package narrator turns diagnostics changes into deduplicated error cues and
// owns the running/stopped lifecycle of the daemon.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/dedup"
	"github.com/rbright/narrator/internal/diagnostics"
	"github.com/rbright/narrator/internal/fsm"
	"github.com/rbright/narrator/internal/indicator"
	"github.com/rbright/narrator/internal/sound"
)

// User-visible notices.
const (
	MessageRunning        = "narrator is now running!"
	MessageAlreadyRunning = "narrator is already running!"
	MessageStopped        = "narrator is now stopped!"
	MessageAlreadyStopped = "narrator is already stopped!"
	MessageRestarted      = "narrator has been restarted!"
	MessageSettings       = "narrator settings updated!"
	playbackFailedPrefix  = "Failed to play audio: "
)

// Player is the audio channel the controller drives.
type Player interface {
	Play(path string) error
	Stop()
	SessionID() string
}

// Selector resolves preferences to an asset path.
type Selector interface {
	Pick(config.Preferences) (string, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(config.Preferences) (string, error)

func (f SelectorFunc) Pick(prefs config.Preferences) (string, error) {
	return f(prefs)
}

// PreferenceSource supplies preferences fresh for every decision.
type PreferenceSource interface {
	Preferences() config.Preferences
}

// DiagnosticsStore is a diagnostics source that also accepts reported snapshots.
type DiagnosticsStore interface {
	diagnostics.Source
	Update(docs ...diagnostics.Document) diagnostics.ChangeEvent
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(context.Context, indicator.Notice)
}

// Outcome summarizes one diagnostics event.
type Outcome struct {
	// Ignored is set when the event arrived while stopped.
	Ignored bool
	Played  int
	Skipped int
	Failed  int
	Cleared int
}

type noopPlayer struct{}

func (noopPlayer) Play(string) error { return nil }
func (noopPlayer) Stop()             {}
func (noopPlayer) SessionID() string { return "" }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, indicator.Notice) {}

type staticPreferences config.Preferences

func (p staticPreferences) Preferences() config.Preferences { return config.Preferences(p) }

// Controller owns the run state, the dedup index, and the audio channel.
// Every exported operation holds mu for its whole duration.
type Controller struct {
	logger   *slog.Logger
	player   Player
	selector Selector
	prefs    PreferenceSource
	store    DiagnosticsStore
	notifier Notifier

	mu      sync.Mutex
	state   fsm.State
	tracker *dedup.Tracker
}

// NewController constructs a controller with safe fallbacks for nil collaborators.
func NewController(
	logger *slog.Logger,
	player Player,
	selector Selector,
	prefs PreferenceSource,
	store DiagnosticsStore,
	notifier Notifier,
	initial fsm.State,
) *Controller {
	if player == nil {
		player = noopPlayer{}
	}
	if selector == nil {
		selector = SelectorFunc(func(config.Preferences) (string, error) { return "", sound.ErrSilent })
	}
	if prefs == nil {
		prefs = staticPreferences(config.Default().Preferences())
	}
	if store == nil {
		store = diagnostics.NewStore()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if initial == "" {
		initial = fsm.StateRunning
	}

	return &Controller{
		logger:   logger,
		player:   player,
		selector: selector,
		prefs:    prefs,
		store:    store,
		notifier: notifier,
		state:    initial,
		tracker:  dedup.NewTracker(),
	}
}

// State returns the current run state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start resumes cue playback for new errors.
func (c *Controller) Start(ctx context.Context) indicator.Notice {
	c.mu.Lock()
	notice := c.transitionLocked(fsm.EventStart, MessageRunning, MessageAlreadyRunning)
	c.mu.Unlock()

	c.notifier.Notify(ctx, notice)
	return notice
}

// Stop halts cue playback and ends any active session.
func (c *Controller) Stop(ctx context.Context) indicator.Notice {
	c.mu.Lock()
	notice := c.transitionLocked(fsm.EventStop, MessageStopped, MessageAlreadyStopped)
	c.player.Stop()
	c.mu.Unlock()

	c.notifier.Notify(ctx, notice)
	return notice
}

// Restart ends any active session and leaves the controller running.
func (c *Controller) Restart(ctx context.Context) indicator.Notice {
	c.mu.Lock()
	c.player.Stop()
	notice := c.transitionLocked(fsm.EventRestart, MessageRestarted, MessageRestarted)
	c.mu.Unlock()

	c.notifier.Notify(ctx, notice)
	return notice
}

// Shutdown ends any active session on daemon exit.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player.Stop()
}

// HandleDiagnostics processes one change event. Events arriving while stopped
// have no effect at all.
func (c *Controller) HandleDiagnostics(ctx context.Context, event diagnostics.ChangeEvent) Outcome {
	var pending []indicator.Notice
	c.mu.Lock()
	out := c.handleDiagnosticsLocked(event, &pending)
	c.mu.Unlock()

	c.dispatch(ctx, pending)
	return out
}

// Report stores the given snapshots and processes the resulting change event
// as one step.
func (c *Controller) Report(ctx context.Context, docs []diagnostics.Document) Outcome {
	var pending []indicator.Notice
	c.mu.Lock()
	event := c.store.Update(docs...)
	out := c.handleDiagnosticsLocked(event, &pending)
	c.mu.Unlock()

	c.dispatch(ctx, pending)
	return out
}

// dispatch shows notices collected during a locked step. c.mu must not be held.
func (c *Controller) dispatch(ctx context.Context, notices []indicator.Notice) {
	for _, n := range notices {
		c.notifier.Notify(ctx, n)
	}
}

func (c *Controller) handleDiagnosticsLocked(event diagnostics.ChangeEvent, pending *[]indicator.Notice) Outcome {
	if c.state != fsm.StateRunning {
		c.debug("diagnostics ignored", "state", string(c.state), "uris", len(event.URIs))
		return Outcome{Ignored: true}
	}

	var out Outcome
	for _, uri := range event.URIs {
		list := c.store.Diagnostics(uri)
		if !diagnostics.HasErrors(list) {
			c.tracker.ClearFile(uri)
			out.Cleared++
			continue
		}

		for _, d := range list {
			if !d.IsError() {
				continue
			}
			key := dedup.Key{File: uri, Line: d.Line, Message: d.Message}
			if !c.tracker.ShouldNotify(key) {
				continue
			}
			c.notifyLocked(key, &out, pending)
		}
	}
	return out
}

// notifyLocked plays the cue for key and marks it only after a successful start.
func (c *Controller) notifyLocked(key dedup.Key, out *Outcome, pending *[]indicator.Notice) {
	prefs := c.prefs.Preferences()

	path, err := c.selector.Pick(prefs)
	switch {
	case errors.Is(err, sound.ErrSilent):
		out.Skipped++
		return
	case errors.Is(err, sound.ErrAssetMissing):
		c.info("voice asset missing; skipping cue", "voice", prefs.VoiceName, "error", err.Error())
		out.Skipped++
		return
	case err != nil:
		c.warn("asset selection failed", "error", err.Error())
		out.Skipped++
		return
	}

	if err := c.player.Play(path); err != nil {
		out.Failed++
		c.warn("cue playback failed", "file", key.File, "line", key.Line, "error", err.Error())
		*pending = append(*pending, PlaybackFailedNotice(err))
		return
	}

	c.tracker.MarkNotified(key)
	out.Played++
	c.debug("cue played", "file", key.File, "line", key.Line, "asset", path, "session", c.player.SessionID())
}

// transitionLocked applies event and maps the result to a notice.
func (c *Controller) transitionLocked(event fsm.Event, changed string, unchanged string) indicator.Notice {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		var noop fsm.ErrNoop
		if errors.As(err, &noop) {
			return indicator.Notice{Level: indicator.LevelInfo, Text: unchanged}
		}
		c.warn("state transition rejected", "state", string(c.state), "event", string(event), "error", err.Error())
		return indicator.Notice{Level: indicator.LevelError, Text: err.Error()}
	}

	c.debug("state transition", "from", string(c.state), "to", string(next), "event", string(event))
	c.state = next
	return indicator.Notice{Level: indicator.LevelInfo, Text: changed}
}

// Snapshot is a point-in-time view for the status command.
type Snapshot struct {
	State         fsm.State
	Preferences   config.Preferences
	TrackedFiles  int
	TrackedKeys   int
	ActiveSession string
}

// Snapshot returns the current status view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:         c.state,
		Preferences:   c.prefs.Preferences(),
		TrackedFiles:  c.tracker.Files(),
		TrackedKeys:   c.tracker.Len(),
		ActiveSession: c.player.SessionID(),
	}
}

// PlaybackFailedNotice builds the error notice for a failed cue.
func PlaybackFailedNotice(err error) indicator.Notice {
	return indicator.Notice{Level: indicator.LevelError, Text: fmt.Sprintf("%s%v", playbackFailedPrefix, err)}
}

func (c *Controller) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Controller) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Controller) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
