package narrator

import (
	"context"
	"fmt"

	"github.com/rbright/narrator/internal/diagnostics"
	"github.com/rbright/narrator/internal/indicator"
	"github.com/rbright/narrator/internal/ipc"
)

// Handle serves IPC commands for the daemon.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		snap := c.Snapshot()
		return ipc.Response{
			OK:      true,
			State:   string(snap.State),
			Message: fmt.Sprintf("narrator is %s", snap.State),
			Status: &ipc.Status{
				State:         string(snap.State),
				Mode:          string(snap.Preferences.Mode),
				Voice:         snap.Preferences.VoiceName,
				TrackedFiles:  snap.TrackedFiles,
				TrackedKeys:   snap.TrackedKeys,
				ActiveSession: snap.ActiveSession,
			},
		}
	case ipc.CommandStart:
		return c.noticeResponse(c.Start(ctx))
	case ipc.CommandStop:
		return c.noticeResponse(c.Stop(ctx))
	case ipc.CommandRestart:
		return c.noticeResponse(c.Restart(ctx))
	case ipc.CommandDiagnostics:
		if err := diagnostics.Normalize(req.Documents); err != nil {
			return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("invalid diagnostics: %v", err)}
		}
		out := c.Report(ctx, req.Documents)
		return ipc.Response{
			OK:      true,
			State:   string(c.State()),
			Message: describeOutcome(out),
			Outcome: &ipc.Outcome{
				Played:  out.Played,
				Skipped: out.Skipped,
				Failed:  out.Failed,
				Cleared: out.Cleared,
			},
		}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) noticeResponse(n indicator.Notice) ipc.Response {
	return ipc.Response{
		OK:      n.Level != indicator.LevelError,
		State:   string(c.State()),
		Message: n.Text,
		Level:   string(n.Level),
	}
}

func describeOutcome(out Outcome) string {
	if out.Ignored {
		return "narrator is stopped; diagnostics ignored"
	}
	return fmt.Sprintf("played %d, skipped %d, failed %d, cleared %d", out.Played, out.Skipped, out.Failed, out.Cleared)
}
