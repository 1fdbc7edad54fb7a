// Package ipc carries newline-delimited JSON requests between narrator CLI
// invocations and the daemon over a unix socket.
package ipc

import "github.com/rbright/narrator/internal/diagnostics"

// Commands understood by the daemon.
const (
	CommandStatus      = "status"
	CommandStart       = "start"
	CommandStop        = "stop"
	CommandRestart     = "restart"
	CommandDiagnostics = "diagnostics"
)

// Notice levels attached to responses.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Request struct {
	Command   string                 `json:"command"`
	Documents []diagnostics.Document `json:"documents,omitempty"`
}

type Response struct {
	OK      bool     `json:"ok"`
	State   string   `json:"state,omitempty"`
	Message string   `json:"message,omitempty"`
	Level   string   `json:"level,omitempty"`
	Error   string   `json:"error,omitempty"`
	Status  *Status  `json:"status,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Status is the daemon snapshot returned by the status command.
type Status struct {
	State         string `json:"state"`
	Mode          string `json:"mode"`
	Voice         string `json:"voice,omitempty"`
	TrackedFiles  int    `json:"tracked_files"`
	TrackedKeys   int    `json:"tracked_keys"`
	ActiveSession string `json:"active_session,omitempty"`
}

// Outcome summarizes one diagnostics event.
type Outcome struct {
	Played  int `json:"played"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Cleared int `json:"cleared"`
}
