// Package doctor runs readiness diagnostics for config, assets, audio output, and the daemon socket.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/narrator/internal/audio"
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/ipc"
	"github.com/rbright/narrator/internal/sound"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as plain text.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Styled renders the report for a terminal. Colors degrade to plain text when
// stdout is not a TTY.
func (r Report) Styled() string {
	lines := make([]string, 0, len(r.Checks))
	for _, check := range r.Checks {
		status := passStyle.Render("OK  ")
		if !check.Pass {
			status = failStyle.Render("FAIL")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", status, nameStyle.Render(check.Name), dimStyle.Render(check.Message)))
	}
	return strings.Join(lines, "\n")
}

// Options points doctor at the runtime socket. An empty SocketPath skips the daemon probe.
type Options struct {
	SocketPath string
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded, opts Options) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available for the daemon socket", "XDG_RUNTIME_DIR is empty"))

	checks = append(checks, checkAssetsDir(cfg.AssetsDir))
	selector := sound.NewSelector(cfg.AssetsDir)
	switch cfg.Preferences().Mode {
	case config.ModeDonk:
		checks = append(checks, checkAsset("asset.donk", selector.PickDefault()))
	case config.ModeVoice:
		checks = append(checks, checkVoice(selector, cfg.VoiceSelected))
	default:
		checks = append(checks, Check{Name: "sound.mode", Pass: true, Message: "silent; no asset required"})
	}

	if cfg.Notify.Desktop {
		switch cfg.Notify.Backend {
		case config.BackendDBus:
			checks = append(checks, checkBinary("busctl", "dbus notices require busctl"))
		case config.BackendHyprland:
			checks = append(checks, checkBinary("hyprctl", "hyprland notices require hyprctl"))
		}
	}

	checks = append(checks, checkAudioSink(ctx, cfg))
	if opts.SocketPath != "" {
		checks = append(checks, checkDaemon(ctx, opts.SocketPath))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", loaded.Path)
	}
	for _, w := range loaded.Warnings {
		if strings.Contains(w.Message, "not found") {
			continue
		}
		message += "; " + w.Message
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkAssetsDir(dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: config.KeyAssetsDir, Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: config.KeyAssetsDir, Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	return Check{Name: config.KeyAssetsDir, Pass: true, Message: dir}
}

// checkAsset opens path and validates that the decode stage accepts it.
func checkAsset(name, path string) Check {
	f, err := os.Open(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	defer f.Close()

	stage, err := audio.NewWAVStage(f)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	stage.Disconnect()
	return Check{Name: name, Pass: true, Message: path}
}

func checkVoice(selector *sound.Selector, voice string) Check {
	name := "asset.voice"
	path, err := selector.PickForVoice(voice)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	check := checkAsset(name, path)
	if check.Pass {
		check.Message = fmt.Sprintf("%s (%s)", voice, selector.VoiceDir(voice))
	}
	return check
}

// checkAudioSink resolves the configured sink against the live Pulse server.
func checkAudioSink(ctx context.Context, cfg config.Config) Check {
	sink, err := audio.SelectSink(ctx, cfg.Audio.Sink)
	if err != nil {
		return Check{Name: config.KeyAudioSink, Pass: false, Message: err.Error()}
	}
	return Check{Name: config.KeyAudioSink, Pass: true, Message: fmt.Sprintf("selected %q (%s)", sink.ID, sink.Description)}
}

func checkDaemon(ctx context.Context, socketPath string) Check {
	alive, err := ipc.Probe(ctx, socketPath, 300*time.Millisecond)
	switch {
	case err != nil:
		return Check{Name: "daemon", Pass: false, Message: err.Error()}
	case alive:
		return Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("listening on %s", socketPath)}
	default:
		return Check{Name: "daemon", Pass: true, Message: "not running (start with `narrator serve`)"}
	}
}
