package playback

import (
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/readaloud/timing"
)

// Session is one read-aloud run over one document. The timeline grows as
// chunks arrive; AudioStart anchors every timeline timestamp to the wall
// clock and is re-based on resume so pause time never counts as speech.
type Session struct {
	ID    string
	Title string

	// Timeline holds word timings in session order. Start/End are
	// relative to the session's audio stream; AudioStart + Start is the
	// wall-clock moment the word is spoken.
	Timeline []timing.WordTiming

	// AudioStart is when timeline position zero played (adjusted on
	// resume).
	AudioStart time.Time

	// Accumulated is the total duration of all chunks received, i.e.
	// where the next chunk's timings begin.
	Accumulated time.Duration

	// TotalWords is the extracted document's word count, known before
	// synthesis finishes.
	TotalWords int

	// GenerationDone is set when the synthesis stream completed; the
	// timeline will not grow further.
	GenerationDone bool
}

// NewSession creates an empty session for an extracted document.
func NewSession(title string, totalWords int) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Title:      title,
		TotalWords: totalWords,
	}
}
