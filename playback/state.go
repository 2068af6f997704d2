// Package playback coordinates a read-aloud session: it drives extraction
// and synthesis, owns the session lifecycle state machine, maintains the
// growing word timeline, and schedules word highlights against the audio
// clock.
package playback

// StateType is the playback lifecycle state.
type StateType int

const (
	// StateStopped indicates no session exists.
	StateStopped StateType = iota
	// StateLoading indicates a session is extracting text and waiting
	// for its first audio chunk.
	StateLoading
	// StatePlaying indicates audio and highlights are running.
	StatePlaying
	// StatePaused indicates the session is suspended at a word position.
	StatePaused
)

// String returns the state's wire name.
func (s StateType) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// StateMachine enforces the playback lifecycle. Stop is reachable from any
// active state; pause and resume only swap between playing and paused.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
	onExit      map[StateType]func()
}

// NewStateMachine creates a machine in StateStopped.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateStopped,
		transitions: map[StateType][]StateType{
			StateStopped: {StateLoading},
			StateLoading: {StatePlaying, StateStopped},
			StatePlaying: {StatePaused, StateStopped},
			StatePaused:  {StatePlaying, StateStopped},
		},
		onEnter: make(map[StateType]func()),
		onExit:  make(map[StateType]func()),
	}
}

// CanTransition reports whether moving to the given state is legal now.
func (sm *StateMachine) CanTransition(to StateType) bool {
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			return true
		}
	}
	return false
}

// Transition moves to the given state, firing exit and enter callbacks.
// Illegal transitions return false and change nothing.
func (sm *StateMachine) Transition(to StateType) bool {
	if !sm.CanTransition(to) {
		return false
	}
	if fn := sm.onExit[sm.current]; fn != nil {
		fn()
	}
	sm.current = to
	if fn := sm.onEnter[to]; fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnEnter registers a callback fired after entering state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.onEnter[state] = fn
}

// OnExit registers a callback fired before leaving state.
func (sm *StateMachine) OnExit(state StateType, fn func()) {
	sm.onExit[state] = fn
}
