// Package fsm defines the narrator run-state machine as a pure transition function.
package fsm

import "fmt"

type State string

type Event string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

const (
	EventStart   Event = "start"
	EventStop    Event = "stop"
	EventRestart Event = "restart"
)

// ErrNoop marks a transition that leaves the state unchanged on purpose.
// Callers surface it as an informational notice rather than a failure.
type ErrNoop struct {
	State State
	Event Event
}

func (e ErrNoop) Error() string {
	return fmt.Sprintf("already %s", e.State)
}

// Initial resolves the startup state from the configured default.
func Initial(startRunning bool) State {
	if startRunning {
		return StateRunning
	}
	return StateStopped
}

// Transition applies event to current. Restart is accepted from every known state.
func Transition(current State, event Event) (State, error) {
	if current != StateRunning && current != StateStopped {
		return current, fmt.Errorf("unknown state %q", current)
	}

	switch event {
	case EventRestart:
		return StateRunning, nil
	case EventStart:
		if current == StateRunning {
			return current, ErrNoop{State: current, Event: event}
		}
		return StateRunning, nil
	case EventStop:
		if current == StateStopped {
			return current, ErrNoop{State: current, Event: event}
		}
		return StateStopped, nil
	default:
		return current, invalidTransition(current, event)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
