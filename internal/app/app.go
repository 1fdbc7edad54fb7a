// Package app binds the command tree to narrator's runtime components.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/narrator/internal/cli"
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/ipc"
	"github.com/rbright/narrator/internal/logging"
	"github.com/rbright/narrator/internal/version"
)

const (
	forwardTimeout = 2 * time.Second
	reportTimeout  = 5 * time.Second
)

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

// Execute runs args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	root := cli.NewRoot(r)
	root.SetArgs(args)
	root.SetOut(r.Stdout)
	root.SetErr(r.Stderr)
	if r.Stdin != nil {
		root.SetIn(r.Stdin)
	}

	err := root.ExecuteContext(ctx)
	code := cli.ExitCode(err)
	switch {
	case err == nil, errors.Is(err, cli.ErrSilentFailure):
	case code == 2:
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, root.UsageString())
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
	}
	return code
}

// env is the per-invocation runtime: logger plus loaded configuration.
type env struct {
	logger *slog.Logger
	loaded config.Loaded
	close  func()
}

// open sets up logging and loads config, printing config warnings to stderr.
func (r Runner) open(g cli.Globals, command string) (env, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return env{}, &cli.UsageError{Err: err}
	}

	closeFn := func() {}
	logger := r.Logger
	logPath := ""
	if logger == nil {
		logRuntime, err := logging.New(level)
		if err != nil {
			return env{}, fmt.Errorf("setup logging: %w", err)
		}
		logger = logRuntime.Logger
		logPath = logRuntime.Path
		closeFn = func() { _ = logRuntime.Close() }
	}

	loaded, err := config.Load(g.ConfigPath)
	if err != nil {
		logger.Error("load config failed", "error", err.Error())
		closeFn()
		return env{}, err
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", command,
		"config", loaded.Path,
		"log", logPath,
	)
	return env{logger: logger, loaded: loaded, close: closeFn}, nil
}

// Version prints build metadata.
func (r Runner) Version() error {
	fmt.Fprintln(r.Stdout, version.String())
	return nil
}

// Forward sends start/stop/restart to the daemon and prints its notice.
func (r Runner) Forward(ctx context.Context, _ cli.Globals, command string) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}

	resp, err := forward(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err != nil {
		return err
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// forward performs one round trip and folds daemon-side failures into an error.
func forward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err != nil {
		if errors.Is(err, ipc.ErrDaemonUnavailable) {
			return ipc.Response{}, err
		}
		return ipc.Response{}, fmt.Errorf("forward command %q: %w", req.Command, err)
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return resp, errors.New(msg)
	}
	return resp, nil
}
