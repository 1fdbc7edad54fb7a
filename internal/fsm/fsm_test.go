package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateStopped

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRunning, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateStopped, next)

	next, err = Transition(next, EventRestart)
	require.NoError(t, err)
	require.Equal(t, StateRunning, next)
}

func TestTransitionRestartFromAnyStateGoesRunning(t *testing.T) {
	for _, state := range []State{StateRunning, StateStopped} {
		next, err := Transition(state, EventRestart)
		require.NoError(t, err)
		require.Equal(t, StateRunning, next)
	}
}

func TestTransitionMatrixNoops(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		event    Event
		want     State
		wantNoop bool
	}{
		{name: "running start noop", state: StateRunning, event: EventStart, want: StateRunning, wantNoop: true},
		{name: "stopped stop noop", state: StateStopped, event: EventStop, want: StateStopped, wantNoop: true},
		{name: "stopped start valid", state: StateStopped, event: EventStart, want: StateRunning},
		{name: "running stop valid", state: StateRunning, event: EventStop, want: StateStopped},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantNoop {
				var noop ErrNoop
				require.True(t, errors.As(err, &noop))
				require.Equal(t, tc.state, noop.State)
				require.Contains(t, err.Error(), "already "+string(tc.state))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownEvent(t *testing.T) {
	next, err := Transition(StateRunning, Event("pause"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid transition")
	require.Equal(t, StateRunning, next)
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestInitial(t *testing.T) {
	require.Equal(t, StateRunning, Initial(true))
	require.Equal(t, StateStopped, Initial(false))
}
