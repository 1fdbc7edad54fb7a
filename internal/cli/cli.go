// Package cli defines the narrator command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Command names.
const (
	CommandServe   = "serve"
	CommandStart   = "start"
	CommandStop    = "stop"
	CommandRestart = "restart"
	CommandStatus  = "status"
	CommandReport  = "report"
	CommandVoices  = "voices"
	CommandDevices = "devices"
	CommandDoctor  = "doctor"
	CommandConfig  = "config"
	CommandVersion = "version"
)

// Globals are the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	LogLevel   string
}

// Handlers executes parsed commands.
type Handlers interface {
	Serve(ctx context.Context, g Globals) error
	Forward(ctx context.Context, g Globals, command string) error
	Status(ctx context.Context, g Globals) error
	Report(ctx context.Context, g Globals, file string) error
	Voices(ctx context.Context, g Globals) error
	Devices(ctx context.Context) error
	Doctor(ctx context.Context, g Globals) error
	ConfigGet(ctx context.Context, g Globals, key string) error
	ConfigSet(ctx context.Context, g Globals, key string, value string) error
	Version() error
}

// UsageError marks invalid invocations; they exit with status 2.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// ErrSilentFailure exits 1 without printing, for commands that already reported.
var ErrSilentFailure = errors.New("command failed")

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

// NewRoot builds the command tree bound to h.
func NewRoot(h Handlers) *cobra.Command {
	var g Globals

	root := &cobra.Command{
		Use:   "narrator",
		Short: "Play an audio cue when your editor reports a new error",
		Long: `narrator watches editor diagnostics and plays a short sound the first time
each error appears. A daemon (narrator serve) owns audio playback; the other
commands talk to it over a unix socket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &UsageError{Err: fmt.Errorf("unknown command: %s", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/narrator/config.yaml)")
	root.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   CommandServe,
			Short: "Run the narrator daemon in the foreground",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Serve(cmd.Context(), g)
			},
		},
		forwardCommand(h, &g, CommandStart, "Resume error cues"),
		forwardCommand(h, &g, CommandStop, "Pause error cues and stop any playing sound"),
		forwardCommand(h, &g, CommandRestart, "Stop any playing sound and resume error cues"),
		&cobra.Command{
			Use:   CommandStatus,
			Short: "Print daemon state, dedup counts and the active session",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Status(cmd.Context(), g)
			},
		},
		reportCommand(h, &g),
		&cobra.Command{
			Use:   CommandVoices,
			Short: "List voice folders under the assets directory",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Voices(cmd.Context(), g)
			},
		},
		&cobra.Command{
			Use:   CommandDevices,
			Short: "List PulseAudio output sinks",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Devices(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   CommandDoctor,
			Short: "Run configuration and environment checks",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Doctor(cmd.Context(), g)
			},
		},
		configCommand(h, &g),
		&cobra.Command{
			Use:   CommandVersion,
			Short: "Print version information",
			Args:  noArgs,
			RunE: func(*cobra.Command, []string) error {
				return h.Version()
			},
		},
	)

	return root
}

func forwardCommand(h Handlers, g *Globals, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Forward(cmd.Context(), *g, name)
		},
	}
}

func reportCommand(h Handlers, g *Globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   CommandReport,
		Short: "Send document diagnostics (JSON) to the daemon",
		Long: `Reads one document {"uri": ..., "diagnostics": [...]} or an array of them
from stdin (or --file) and forwards it to the daemon as a change event.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Report(cmd.Context(), *g, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read diagnostics from file instead of stdin")
	return cmd
}

func configCommand(h Handlers, g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CommandConfig,
		Short: "Read or change configuration values",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return h.ConfigGet(cmd.Context(), *g, args[0])
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist one configuration value",
			Args:  usageArgs(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return h.ConfigSet(cmd.Context(), *g, args[0], args[1])
			},
		},
	)
	return cmd
}

var noArgs = usageArgs(cobra.NoArgs)

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
