package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rbright/narrator/internal/audio"
	"github.com/rbright/narrator/internal/cli"
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/diagnostics"
	"github.com/rbright/narrator/internal/fsm"
	"github.com/rbright/narrator/internal/indicator"
	"github.com/rbright/narrator/internal/ipc"
	"github.com/rbright/narrator/internal/narrator"
	"github.com/rbright/narrator/internal/sound"
)

// Serve runs the daemon until ctx is cancelled.
func (r Runner) Serve(ctx context.Context, g cli.Globals) error {
	e, err := r.open(g, cli.CommandServe)
	if err != nil {
		return err
	}
	defer e.close()
	logger := e.logger

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	owner := ipc.Owner{ProbeTimeout: 180 * time.Millisecond, Attempts: 8, Logger: logger}
	listener, err := owner.Acquire(ctx, socketPath)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return fmt.Errorf("%w on %s", err, socketPath)
		}
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	store := config.NewStore(e.loaded, logger)
	cfg := store.Config()
	notifier := indicator.NewDesktop(cfg.Notify, logger)

	device := audio.DeviceFunc(func(stage audio.Stage) (audio.Output, error) {
		return audio.PulseDevice{Sink: store.Config().Audio.Sink}.Open(stage)
	})
	channel := audio.NewChannel(logger, device)
	channel.OnFailure(func(perr *audio.PlaybackError) {
		notifier.Notify(context.Background(), narrator.PlaybackFailedNotice(perr))
	})

	selector := narrator.SelectorFunc(func(prefs config.Preferences) (string, error) {
		return sound.NewSelector(store.Config().AssetsDir).Pick(prefs)
	})

	controller := narrator.NewController(
		logger,
		channel,
		selector,
		store,
		diagnostics.NewStore(),
		notifier,
		fsm.Initial(cfg.Narrator.StartRunning),
	)

	store.OnChange(func(change config.Change) {
		notifier.SetConfig(change.Current.Notify)
		logger.Info("config changed",
			"conflict", change.Conflict,
			"mode", string(change.Current.Preferences().Mode),
			"voice", change.Current.VoiceSelected,
		)
		for _, n := range narrator.SettingsNotices(change) {
			notifier.Notify(ctx, n)
		}
	})
	if cfg.EnableDonk && cfg.EnableVoices && e.loaded.Exists {
		if err := store.Reload(); err != nil {
			logger.Warn("reconcile sound modes failed", "error", err.Error())
		}
	}
	if err := store.Watch(); err != nil {
		logger.Warn("config watch unavailable", "error", err.Error())
	}
	defer store.Close()

	state := controller.State()
	logger.Info("daemon ready", "socket", socketPath, "state", string(state))
	fmt.Fprintf(r.Stdout, "narrator listening on %s (%s)\n", socketPath, state)

	serveErr := ipc.Serve(ctx, listener, controller, logger)
	controller.Shutdown()
	logger.Info("daemon stopped")
	if serveErr != nil {
		return fmt.Errorf("ipc server failed: %w", serveErr)
	}
	return nil
}
