package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/narrator/internal/audio"
	"github.com/rbright/narrator/internal/cli"
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/diagnostics"
	"github.com/rbright/narrator/internal/doctor"
	"github.com/rbright/narrator/internal/indicator"
	"github.com/rbright/narrator/internal/ipc"
	"github.com/rbright/narrator/internal/narrator"
	"github.com/rbright/narrator/internal/sound"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Status prints the daemon snapshot, or "not running" when no daemon answers.
func (r Runner) Status(ctx context.Context, _ cli.Globals) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return nil
	}

	resp, err := forward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	if errors.Is(err, ipc.ErrDaemonUnavailable) {
		fmt.Fprintln(r.Stdout, "not running")
		return nil
	}
	if err != nil {
		return err
	}

	st := resp.Status
	if st == nil {
		state := resp.State
		if state == "" {
			state = "unknown"
		}
		fmt.Fprintln(r.Stdout, state)
		return nil
	}

	session := st.ActiveSession
	if session == "" {
		session = "none"
	}
	mode := st.Mode
	if st.Voice != "" && st.Mode == string(config.ModeVoice) {
		mode = fmt.Sprintf("%s (%s)", st.Mode, st.Voice)
	}
	rows := [][2]string{
		{"state", st.State},
		{"mode", mode},
		{"tracked files", fmt.Sprint(st.TrackedFiles)},
		{"tracked errors", fmt.Sprint(st.TrackedKeys)},
		{"session", session},
	}
	for _, row := range rows {
		fmt.Fprintf(r.Stdout, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-15s", row[0]+":")), valueStyle.Render(row[1]))
	}
	return nil
}

// Report forwards a diagnostics snapshot read from stdin or file.
func (r Runner) Report(ctx context.Context, _ cli.Globals, file string) error {
	var in io.Reader = r.Stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open report: %w", err)
		}
		defer f.Close()
		in = f
	}
	if in == nil {
		return errors.New("no diagnostics input")
	}

	docs, err := diagnostics.ParseReport(in)
	if err != nil {
		return err
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	resp, err := forward(ctx, socketPath, ipc.Request{Command: ipc.CommandDiagnostics, Documents: docs}, reportTimeout)
	if err != nil {
		return err
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// Voices lists voice folders and marks the selected one.
func (r Runner) Voices(_ context.Context, g cli.Globals) error {
	e, err := r.open(g, cli.CommandVoices)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := e.loaded.Config
	voices, err := sound.NewSelector(cfg.AssetsDir).Voices()
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		fmt.Fprintf(r.Stdout, "no voice folders in %s\n", cfg.AssetsDir)
		return nil
	}

	selected := sound.FolderName(cfg.VoiceSelected)
	for _, v := range voices {
		mark := " "
		if v.Name == selected {
			mark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %s %s\n", mark, v.Name, mutedStyle.Render(fmt.Sprintf("(%d files)", v.Files)))
	}
	return nil
}

// Devices lists Pulse sinks with the default marked.
func (r Runner) Devices(ctx context.Context) error {
	sinks, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output sinks found")
		return cli.ErrSilentFailure
	}

	for _, sink := range sinks {
		mark := " "
		if sink.Default {
			mark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s id=%s | description=%q | rate=%d\n", mark, sink.ID, sink.Description, sink.SampleRate)
	}
	return nil
}

// Doctor prints readiness checks; any failure exits 1.
func (r Runner) Doctor(ctx context.Context, g cli.Globals) error {
	e, err := r.open(g, cli.CommandDoctor)
	if err != nil {
		return err
	}
	defer e.close()

	socketPath, _ := ipc.RuntimeSocketPath()
	report := doctor.Run(ctx, e.loaded, doctor.Options{SocketPath: socketPath})
	fmt.Fprintln(r.Stdout, report.Styled())
	if !report.OK() {
		return cli.ErrSilentFailure
	}
	return nil
}

// ConfigGet prints one effective configuration value.
func (r Runner) ConfigGet(_ context.Context, g cli.Globals, key string) error {
	e, err := r.open(g, cli.CommandConfig)
	if err != nil {
		return err
	}
	defer e.close()

	value, err := e.loaded.Config.Value(key)
	if err != nil {
		return &cli.UsageError{Err: fmt.Errorf("%w (known keys: %s)", err, strings.Join(config.Keys(), ", "))}
	}
	fmt.Fprintln(r.Stdout, value)
	return nil
}

// ConfigSet persists one value; a running daemon picks it up through its watcher.
func (r Runner) ConfigSet(_ context.Context, g cli.Globals, key string, raw string) error {
	value, err := config.ParseValue(key, raw)
	if err != nil {
		return &cli.UsageError{Err: err}
	}

	e, err := r.open(g, cli.CommandConfig)
	if err != nil {
		return err
	}
	defer e.close()

	store := config.NewStore(e.loaded, e.logger)
	store.OnChange(func(change config.Change) {
		for _, n := range narrator.SettingsNotices(change) {
			if n.Level == indicator.LevelWarning {
				fmt.Fprintf(r.Stdout, "warning: %s\n", n.Text)
				continue
			}
			fmt.Fprintln(r.Stdout, n.Text)
		}
	})
	if err := store.Set(key, value); err != nil {
		return err
	}
	return nil
}
