package playback

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name string
		from StateType
		to   StateType
		want bool
	}{
		{"stopped to loading", StateStopped, StateLoading, true},
		{"stopped to playing", StateStopped, StatePlaying, false},
		{"stopped to paused", StateStopped, StatePaused, false},
		{"loading to playing", StateLoading, StatePlaying, true},
		{"loading to stopped", StateLoading, StateStopped, true},
		{"loading to paused", StateLoading, StatePaused, false},
		{"playing to paused", StatePlaying, StatePaused, true},
		{"playing to stopped", StatePlaying, StateStopped, true},
		{"playing to loading", StatePlaying, StateLoading, false},
		{"paused to playing", StatePaused, StatePlaying, true},
		{"paused to stopped", StatePaused, StateStopped, true},
		{"paused to loading", StatePaused, StateLoading, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			sm.current = tt.from
			if got := sm.Transition(tt.to); got != tt.want {
				t.Errorf("Transition(%v→%v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			wantState := tt.from
			if tt.want {
				wantState = tt.to
			}
			if sm.Current() != wantState {
				t.Errorf("state after transition = %v, want %v", sm.Current(), wantState)
			}
		})
	}
}

func TestStateMachineCallbacks(t *testing.T) {
	sm := NewStateMachine()
	var order []string
	sm.OnExit(StateStopped, func() { order = append(order, "exit-stopped") })
	sm.OnEnter(StateLoading, func() { order = append(order, "enter-loading") })

	if !sm.Transition(StateLoading) {
		t.Fatal("transition failed")
	}
	if len(order) != 2 || order[0] != "exit-stopped" || order[1] != "enter-loading" {
		t.Errorf("callback order = %v", order)
	}
}

func TestStateMachineRejectedTransitionSkipsCallbacks(t *testing.T) {
	sm := NewStateMachine()
	fired := false
	sm.OnEnter(StatePlaying, func() { fired = true })

	if sm.Transition(StatePlaying) {
		t.Fatal("stopped→playing should be rejected")
	}
	if fired {
		t.Error("callback fired on rejected transition")
	}
}

func TestStateTypeString(t *testing.T) {
	tests := map[StateType]string{
		StateStopped:  "stopped",
		StateLoading:  "loading",
		StatePlaying:  "playing",
		StatePaused:   "paused",
		StateType(99): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
