package narrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rbright/narrator/internal/audio"
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/dedup"
	"github.com/rbright/narrator/internal/diagnostics"
	"github.com/rbright/narrator/internal/fsm"
	"github.com/rbright/narrator/internal/indicator"
	"github.com/rbright/narrator/internal/ipc"
	"github.com/rbright/narrator/internal/sound"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu      sync.Mutex
	plays   []string
	stops   int
	playErr error
	live    string
}

func (p *fakePlayer) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, path)
	if p.playErr != nil {
		p.live = ""
		return p.playErr
	}
	p.live = fmt.Sprintf("session-%d", len(p.plays))
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.live = ""
}

func (p *fakePlayer) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

type mutablePrefs struct {
	mu    sync.Mutex
	prefs config.Preferences
}

func (m *mutablePrefs) Preferences() config.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

func (m *mutablePrefs) set(p config.Preferences) {
	m.mu.Lock()
	m.prefs = p
	m.mu.Unlock()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n indicator.Notice) {
	m.Called(ctx, n)
}

type harness struct {
	ctrl     *Controller
	player   *fakePlayer
	prefs    *mutablePrefs
	store    *diagnostics.Store
	notifier *mockNotifier
	assets   string
}

func newHarness(t *testing.T, initial fsm.State) *harness {
	t.Helper()

	h := &harness{
		player:   &fakePlayer{},
		prefs:    &mutablePrefs{prefs: config.Preferences{Mode: config.ModeDonk}},
		store:    diagnostics.NewStore(),
		notifier: &mockNotifier{},
		assets:   t.TempDir(),
	}
	selector := sound.NewSelector(h.assets)
	h.ctrl = NewController(nil, h.player, selector, h.prefs, h.store, h.notifier, initial)
	t.Cleanup(func() { h.notifier.AssertExpectations(t) })
	return h
}

func (h *harness) report(uri string, diags ...diagnostics.Diagnostic) Outcome {
	return h.ctrl.Report(context.Background(), []diagnostics.Document{{URI: uri, Diagnostics: diags}})
}

func errorAt(line int, message string) diagnostics.Diagnostic {
	return diagnostics.Diagnostic{Line: line, Severity: diagnostics.SeverityError, Message: message}
}

func (h *harness) expectNotice(level indicator.Level, text string) {
	h.notifier.On("Notify", mock.Anything, indicator.Notice{Level: level, Text: text}).Once()
}

func TestStartWhenRunningIsNoop(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.expectNotice(indicator.LevelInfo, MessageAlreadyRunning)

	notice := h.ctrl.Start(context.Background())
	require.Equal(t, MessageAlreadyRunning, notice.Text)
	require.Equal(t, fsm.StateRunning, h.ctrl.State())
	require.Zero(t, h.player.stops)
	require.Empty(t, h.player.plays)
}

func TestStartFromStopped(t *testing.T) {
	h := newHarness(t, fsm.StateStopped)
	h.expectNotice(indicator.LevelInfo, MessageRunning)

	notice := h.ctrl.Start(context.Background())
	require.Equal(t, MessageRunning, notice.Text)
	require.Equal(t, fsm.StateRunning, h.ctrl.State())
	require.Zero(t, h.player.stops)
}

func TestStopEndsSessionRegardlessOfState(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.expectNotice(indicator.LevelInfo, MessageStopped)
	h.expectNotice(indicator.LevelInfo, MessageAlreadyStopped)

	h.report("a.ts", errorAt(10, "missing semicolon"))
	require.NotEmpty(t, h.player.SessionID())

	require.Equal(t, MessageStopped, h.ctrl.Stop(context.Background()).Text)
	require.Equal(t, fsm.StateStopped, h.ctrl.State())
	require.Empty(t, h.player.SessionID())

	require.Equal(t, MessageAlreadyStopped, h.ctrl.Stop(context.Background()).Text)
	require.Equal(t, fsm.StateStopped, h.ctrl.State())
	require.Equal(t, 2, h.player.stops)
}

func TestRestartAlwaysStopsAudio(t *testing.T) {
	for _, initial := range []fsm.State{fsm.StateRunning, fsm.StateStopped} {
		t.Run(string(initial), func(t *testing.T) {
			h := newHarness(t, initial)
			h.expectNotice(indicator.LevelInfo, MessageRestarted)

			require.Equal(t, MessageRestarted, h.ctrl.Restart(context.Background()).Text)
			require.Equal(t, fsm.StateRunning, h.ctrl.State())
			require.Equal(t, 1, h.player.stops)
		})
	}
}

func TestDonkScenarioPlaysOnce(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	out := h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Played: 1}, out)
	require.Equal(t, []string{filepath.Join(h.assets, sound.DonkFile)}, h.player.plays)
	require.False(t, h.ctrl.tracker.ShouldNotify(dedup.Key{File: "a.ts", Line: 10, Message: "missing semicolon"}))

	for i := 0; i < 3; i++ {
		out = h.report("a.ts", errorAt(10, "missing semicolon"))
		require.Equal(t, Outcome{}, out)
	}
	require.Len(t, h.player.plays, 1)
}

func TestFixedFileClearsAndReplays(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	h.report("a.ts", errorAt(10, "missing semicolon"))
	out := h.report("a.ts", diagnostics.Diagnostic{Line: 3, Severity: diagnostics.SeverityWarning, Message: "unused"})
	require.Equal(t, Outcome{Cleared: 1}, out)
	require.Zero(t, h.ctrl.tracker.Files())

	out = h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Played: 1}, out)
	require.Len(t, h.player.plays, 2)
}

func TestDifferentMessagesOnSameLineTrackedIndependently(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	out := h.report("a.ts", errorAt(10, "missing semicolon"), errorAt(10, "unexpected token"))
	require.Equal(t, 2, out.Played)

	out = h.report("a.ts", errorAt(10, "missing semicolon"), errorAt(10, "unexpected token"), errorAt(10, "third"))
	require.Equal(t, 1, out.Played)
	require.Len(t, h.player.plays, 3)
	require.Equal(t, 3, h.ctrl.tracker.Len())
}

func TestDiagnosticsIgnoredWhileStopped(t *testing.T) {
	h := newHarness(t, fsm.StateStopped)

	out := h.report("a.ts", errorAt(10, "missing semicolon"))
	require.True(t, out.Ignored)
	require.Empty(t, h.player.plays)
	require.Zero(t, h.ctrl.tracker.Len())

	h.expectNotice(indicator.LevelInfo, MessageRunning)
	h.ctrl.Start(context.Background())

	out = h.ctrl.HandleDiagnostics(context.Background(), diagnostics.ChangeEvent{URIs: []string{"a.ts"}})
	require.Equal(t, Outcome{Played: 1}, out)
}

func TestStoppedEventDoesNotClearDedup(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.expectNotice(indicator.LevelInfo, MessageStopped)

	h.report("a.ts", errorAt(10, "missing semicolon"))
	h.ctrl.Stop(context.Background())
	h.report("a.ts")

	require.Equal(t, 1, h.ctrl.tracker.Len())
}

func TestSilentModeSkipsWithoutMarking(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.prefs.set(config.Preferences{Mode: config.ModeSilent})

	out := h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Skipped: 1}, out)
	require.Empty(t, h.player.plays)
	require.Zero(t, h.ctrl.tracker.Len())

	h.prefs.set(config.Preferences{Mode: config.ModeDonk})
	out = h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Played: 1}, out)
}

func TestEmptyVoiceFolderSkipsUntilPopulated(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.prefs.set(config.Preferences{Mode: config.ModeVoice, VoiceName: "Ice Man"})
	voiceDir := filepath.Join(h.assets, "iceman")
	require.NoError(t, os.MkdirAll(voiceDir, 0o755))

	out := h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Skipped: 1}, out)
	require.Empty(t, h.player.plays)
	require.True(t, h.ctrl.tracker.ShouldNotify(dedup.Key{File: "a.ts", Line: 10, Message: "missing semicolon"}))

	require.NoError(t, os.WriteFile(filepath.Join(voiceDir, "talk.wav"), []byte("RIFF"), 0o644))
	out = h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Played: 1}, out)
	require.Equal(t, []string{filepath.Join(voiceDir, "talk.wav")}, h.player.plays)
}

func TestPlaybackErrorNotifiesAndDoesNotMark(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	playErr := &audio.PlaybackError{Op: "decode", Path: "/x.wav", Err: audio.ErrUnsupportedFormat}
	h.player.playErr = playErr
	h.expectNotice(indicator.LevelError, "Failed to play audio: "+playErr.Error())
	h.expectNotice(indicator.LevelError, "Failed to play audio: "+playErr.Error())

	out := h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Failed: 1}, out)
	require.Equal(t, fsm.StateRunning, h.ctrl.State())

	out = h.report("a.ts", errorAt(10, "missing semicolon"))
	require.Equal(t, Outcome{Failed: 1}, out)
	require.Len(t, h.player.plays, 2)
	require.Zero(t, h.ctrl.tracker.Len())
}

func TestSelectorErrorIsSkipped(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.ctrl.selector = SelectorFunc(func(config.Preferences) (string, error) {
		return "", errors.New("disk on fire")
	})

	out := h.report("a.ts", errorAt(1, "x"))
	require.Equal(t, Outcome{Skipped: 1}, out)
}

func TestNonErrorSeveritiesNeverPlay(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	out := h.report("a.ts",
		diagnostics.Diagnostic{Line: 1, Severity: diagnostics.SeverityWarning, Message: "w"},
		diagnostics.Diagnostic{Line: 2, Severity: diagnostics.SeverityHint, Message: "h"},
	)
	require.Equal(t, Outcome{Cleared: 1}, out)
	require.Empty(t, h.player.plays)
}

func TestShutdownStopsAudio(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)
	h.report("a.ts", errorAt(1, "x"))

	h.ctrl.Shutdown()
	require.Empty(t, h.player.SessionID())
	require.Equal(t, fsm.StateRunning, h.ctrl.State())
}

func TestNewControllerFallbacks(t *testing.T) {
	ctrl := NewController(nil, nil, nil, nil, nil, nil, "")
	require.Equal(t, fsm.StateRunning, ctrl.State())

	out := ctrl.Report(context.Background(), []diagnostics.Document{{URI: "a", Diagnostics: []diagnostics.Diagnostic{errorAt(1, "x")}}})
	require.Equal(t, Outcome{Skipped: 1}, out)
	ctrl.Shutdown()
}

func TestHandleCommands(t *testing.T) {
	h := newHarness(t, fsm.StateStopped)
	h.prefs.set(config.Preferences{Mode: config.ModeVoice, VoiceName: "Goose"})
	h.expectNotice(indicator.LevelInfo, MessageRunning)

	status := h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, "stopped", status.State)
	require.Equal(t, &ipc.Status{State: "stopped", Mode: "voice", Voice: "Goose"}, status.Status)

	start := h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStart})
	require.True(t, start.OK)
	require.Equal(t, "running", start.State)
	require.Equal(t, MessageRunning, start.Message)
	require.Equal(t, ipc.LevelInfo, start.Level)

	unknown := h.ctrl.Handle(context.Background(), ipc.Request{Command: "toggle"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleDiagnosticsRequest(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	resp := h.ctrl.Handle(context.Background(), ipc.Request{
		Command:   ipc.CommandDiagnostics,
		Documents: []diagnostics.Document{{URI: "a.ts", Diagnostics: []diagnostics.Diagnostic{errorAt(10, "missing semicolon")}}},
	})
	require.True(t, resp.OK)
	require.Equal(t, &ipc.Outcome{Played: 1}, resp.Outcome)
	require.Equal(t, "played 1, skipped 0, failed 0, cleared 0", resp.Message)

	status := h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, 1, status.Status.TrackedFiles)
	require.Equal(t, 1, status.Status.TrackedKeys)
	require.Equal(t, "session-1", status.Status.ActiveSession)
}

func TestHandleDiagnosticsWithoutSeverityCountsAsError(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	resp := h.ctrl.Handle(context.Background(), ipc.Request{
		Command: ipc.CommandDiagnostics,
		Documents: []diagnostics.Document{{
			URI:         " a.ts ",
			Diagnostics: []diagnostics.Diagnostic{{Line: 10, Message: "missing semicolon"}},
		}},
	})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, &ipc.Outcome{Played: 1}, resp.Outcome)
	require.Len(t, h.player.plays, 1)
	require.Equal(t, []diagnostics.Diagnostic{errorAt(10, "missing semicolon")}, h.store.Diagnostics("a.ts"))
}

func TestHandleDiagnosticsRejectsInvalidDocuments(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	for name, doc := range map[string]diagnostics.Document{
		"missing uri":   {Diagnostics: []diagnostics.Diagnostic{errorAt(1, "x")}},
		"negative line": {URI: "a.ts", Diagnostics: []diagnostics.Diagnostic{errorAt(-1, "x")}},
	} {
		resp := h.ctrl.Handle(context.Background(), ipc.Request{
			Command:   ipc.CommandDiagnostics,
			Documents: []diagnostics.Document{doc},
		})
		require.False(t, resp.OK, name)
		require.Contains(t, resp.Error, "invalid diagnostics", name)
		require.Nil(t, resp.Outcome, name)
	}
	require.Empty(t, h.player.plays)
	require.Equal(t, 0, h.store.Len())
}

type blockingNotifier struct {
	entered chan indicator.Notice
	release chan struct{}
}

func (b *blockingNotifier) Notify(_ context.Context, n indicator.Notice) {
	b.entered <- n
	<-b.release
}

func TestSlowNotifierDoesNotHoldController(t *testing.T) {
	notifier := &blockingNotifier{entered: make(chan indicator.Notice, 1), release: make(chan struct{})}
	player := &fakePlayer{playErr: errors.New("device gone")}
	ctrl := NewController(nil, player, sound.NewSelector(t.TempDir()), nil, nil, notifier, fsm.StateStopped)

	started := make(chan indicator.Notice, 1)
	go func() { started <- ctrl.Start(context.Background()) }()
	require.Equal(t, MessageRunning, (<-notifier.entered).Text)

	require.Equal(t, fsm.StateRunning, ctrl.State())
	require.Equal(t, 0, ctrl.Snapshot().TrackedKeys)
	close(notifier.release)
	require.Equal(t, MessageRunning, (<-started).Text)

	notifier.release = make(chan struct{})
	reported := make(chan Outcome, 1)
	go func() {
		reported <- ctrl.Report(context.Background(), []diagnostics.Document{{URI: "a.ts", Diagnostics: []diagnostics.Diagnostic{errorAt(1, "x")}}})
	}()
	failed := <-notifier.entered
	require.Equal(t, indicator.LevelError, failed.Level)
	require.Contains(t, failed.Text, "device gone")

	require.Equal(t, fsm.StateRunning, ctrl.State())
	close(notifier.release)
	require.Equal(t, Outcome{Failed: 1}, <-reported)
}

func TestSettingsNotices(t *testing.T) {
	require.Equal(t, []indicator.Notice{
		{Level: indicator.LevelWarning, Text: config.ConflictMessage},
		{Level: indicator.LevelInfo, Text: MessageSettings},
	}, SettingsNotices(config.Change{Conflict: true}))

	require.Equal(t, []indicator.Notice{
		{Level: indicator.LevelInfo, Text: MessageSettings},
	}, SettingsNotices(config.Change{}))
}

func TestConcurrentReportsNeverDoublePlay(t *testing.T) {
	h := newHarness(t, fsm.StateRunning)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.report("a.ts", errorAt(10, "missing semicolon"))
		}()
	}
	wg.Wait()

	require.Len(t, h.player.plays, 1)
}
