package playback

import "github.com/dgnsrekt/readaloud/transport"

// Bus topics carrying playback traffic between the core and its surfaces.
const (
	// TopicControl receives ControlMsg commands from any surface.
	TopicControl transport.Topic = "playback.control"
	// TopicState broadcasts StateChangedMsg on every lifecycle change.
	TopicState transport.Topic = "playback.state"
	// TopicHighlight broadcasts HighlightMsg as words are spoken.
	TopicHighlight transport.Topic = "playback.highlight"
	// TopicScroll broadcasts ScrollMsg to keep the view near the
	// highlighted word.
	TopicScroll transport.Topic = "playback.scroll"
	// TopicReset broadcasts ResetMsg when a session ends and surfaces
	// should clear their highlight.
	TopicReset transport.Topic = "playback.reset"
	// TopicProgress broadcasts ProgressMsg during audio generation.
	TopicProgress transport.Topic = "playback.progress"
)

// Command is a playback control verb.
type Command string

const (
	CommandPlay   Command = "play"
	CommandPause  Command = "pause"
	CommandStop   Command = "stop"
	CommandToggle Command = "toggle"
)

// ControlMsg asks the orchestrator to change playback. Source carries the
// document for CommandPlay and is ignored otherwise.
type ControlMsg struct {
	Command Command
	Source  string
}

// StateChangedMsg announces a lifecycle change. Position is the word index
// the session is at, Reason a short cause ("complete", "stopped", or an
// error description) populated on transitions to stopped.
type StateChangedMsg struct {
	State     StateType
	Position  int
	SessionID string
	Reason    string
}

// HighlightMsg marks one word as currently spoken.
type HighlightMsg struct {
	Index int
}

// ScrollMsg asks surfaces to bring a word into view.
type ScrollMsg struct {
	Index int
}

// ResetMsg asks surfaces to drop all highlight and scroll state.
type ResetMsg struct{}

// ProgressMsg reports audio generation progress for the active session.
type ProgressMsg struct {
	Percent   int
	SessionID string
}
