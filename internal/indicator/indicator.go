// Package indicator surfaces narrator notices to the user as desktop
// notifications and mirrors them into the runtime log.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/beeep"
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/hypr"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one user-visible message.
type Notice struct {
	Level Level
	Text  string
}

const (
	maxNoticeLen    = 800
	dispatchTimeout = 400 * time.Millisecond
)

// Desktop dispatches notices through beeep, the freedesktop DBus service, or
// the Hyprland overlay.
type Desktop struct {
	logger   *slog.Logger
	messages messages

	mu        sync.Mutex
	cfg       config.NotifyConfig
	replaceID uint32

	beeepNotify func(title, text string) error
	dbusNotify  func(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error)
	hyprNotify  func(ctx context.Context, icon hypr.Icon, timeoutMS int, color string, text string) error
}

// NewDesktop creates a notifier from config.
func NewDesktop(cfg config.NotifyConfig, logger *slog.Logger) *Desktop {
	return &Desktop{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		beeepNotify: func(title, text string) error {
			return beeep.Notify(title, text, "")
		},
		dbusNotify: desktopNotify,
		hyprNotify: hypr.Notify,
	}
}

// SetConfig swaps notice settings after a configuration change.
func (d *Desktop) SetConfig(cfg config.NotifyConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

// Notify logs n and, when desktop notices are enabled, shows it.
func (d *Desktop) Notify(ctx context.Context, n Notice) {
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return
	}
	text = truncate(text, maxNoticeLen)
	d.logNotice(n.Level, text)

	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()
	if !cfg.Desktop {
		return
	}

	title := d.messages.title(n.Level)
	d.run(ctx, func(ctx context.Context) error {
		switch cfg.Backend {
		case config.BackendDBus:
			return d.notifyDBus(ctx, cfg.AppName, title, text, timeoutFor(n.Level))
		case config.BackendHyprland:
			icon, color := hyprStyle(n.Level)
			return d.hyprNotify(ctx, icon, timeoutFor(n.Level), color, title+": "+text)
		default:
			return d.beeepNotify(title, text)
		}
	})
}

// notifyDBus sends a notice that replaces the previous one.
func (d *Desktop) notifyDBus(ctx context.Context, appName, title, text string, timeoutMS int) error {
	d.mu.Lock()
	replaceID := d.replaceID
	d.mu.Unlock()

	if strings.TrimSpace(appName) == "" {
		appName = "narrator"
	}
	id, err := d.dbusNotify(ctx, appName, replaceID, title, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.replaceID = id
	d.mu.Unlock()
	return nil
}

// run executes a dispatch with a bounded timeout. A backend that ignores its
// context is left to finish in the background.
func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()

	var err error
	select {
	case err = <-done:
	case <-runCtx.Done():
		err = runCtx.Err()
	}
	if err != nil && d.logger != nil {
		d.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// truncate shortens text to at most limit bytes on a rune boundary, marking the cut.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func (d *Desktop) logNotice(level Level, text string) {
	if d.logger == nil {
		return
	}
	switch level {
	case LevelError:
		d.logger.Error("notice", "text", text)
	case LevelWarning:
		d.logger.Warn("notice", "text", text)
	default:
		d.logger.Info("notice", "text", text)
	}
}

func hyprStyle(level Level) (hypr.Icon, string) {
	switch level {
	case LevelError:
		return hypr.IconError, "rgb(f38ba8)"
	case LevelWarning:
		return hypr.IconWarning, "rgb(f9e2af)"
	default:
		return hypr.IconInfo, ""
	}
}

func timeoutFor(level Level) int {
	switch level {
	case LevelError:
		return 6000
	case LevelWarning:
		return 4000
	default:
		return 2000
	}
}
