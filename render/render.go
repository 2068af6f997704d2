// Package render displays the document being read, tracking the highlight
// and scroll messages the playback core broadcasts.
package render

import (
	"context"

	"github.com/dgnsrekt/readaloud/playback"
	"github.com/dgnsrekt/readaloud/transport"
)

// Renderer is a surface that can show read-aloud progress.
type Renderer interface {
	// HighlightWord marks the word at index as currently spoken.
	HighlightWord(index int)
	// ScrollToWord brings the word at index into view.
	ScrollToWord(index int)
	// Reset clears highlight and scroll state.
	Reset()
}

// Listen forwards playback broadcasts to r until ctx ends. It is the glue
// for surfaces that are not message-driven themselves; the TUI consumes the
// bus directly instead.
func Listen(ctx context.Context, bus *transport.Bus, r Renderer) {
	sub := bus.Subscribe(playback.TopicHighlight, playback.TopicScroll, playback.TopicReset)
	if sub == nil {
		return
	}
	defer sub.Close()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			switch payload := msg.Payload.(type) {
			case playback.HighlightMsg:
				r.HighlightWord(payload.Index)
			case playback.ScrollMsg:
				r.ScrollToWord(payload.Index)
			case playback.ResetMsg:
				r.Reset()
			}
		case <-ctx.Done():
			return
		}
	}
}
