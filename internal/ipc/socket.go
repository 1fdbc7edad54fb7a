package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const socketName = "narrator.sock"

// ErrAlreadyRunning reports a live daemon answering on the socket.
var ErrAlreadyRunning = errors.New("narrator daemon already running")

// RuntimeSocketPath returns the daemon socket under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// Owner configures how the daemon claims its socket.
type Owner struct {
	// ProbeTimeout bounds the liveness check against an existing socket file.
	ProbeTimeout time.Duration
	// Attempts is the number of listen tries; stale files are removed between them.
	Attempts int
	Logger   *slog.Logger
}

// Acquire listens on path as the only daemon. A socket file nobody answers on
// is treated as left behind by a crashed daemon and replaced.
func (o Owner) Acquire(ctx context.Context, path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	attempts := max(o.Attempts, 1)
	for attempt := 1; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := o.replaceStale(ctx, path); err != nil {
			return nil, err
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("socket %s still busy after %d attempts", path, attempts)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*attempt) * time.Millisecond):
		}
	}
}

// replaceStale removes path unless a daemon answers on it.
func (o Owner) replaceStale(ctx context.Context, path string) error {
	timeout := o.ProbeTimeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	alive, err := Probe(ctx, path, timeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	if o.Logger != nil {
		o.Logger.Warn("removed stale daemon socket", "path", path)
	}
	return nil
}
