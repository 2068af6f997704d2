package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/playback"
	"github.com/dgnsrekt/readaloud/transport"
)

func TestTerminalRendererWrapsByWidth(t *testing.T) {
	r := NewTerminalRenderer("alpha beta gamma delta epsilon", 11, 10, "212")

	// Width 11 fits "alpha beta" (10) but not "alpha beta gamma".
	view := r.View()
	lines := strings.Split(view, "\n")
	if lines[0] != "alpha beta" {
		t.Errorf("first line = %q", lines[0])
	}
	for i, ln := range lines {
		if w := len(ln); w > 11 {
			t.Errorf("line %d is %d cells wide: %q", i, w, ln)
		}
	}
}

func TestTerminalRendererHighlight(t *testing.T) {
	r := NewTerminalRenderer("one two three", 80, 5, "212")
	r.HighlightWord(1)

	if r.Highlighted() != 1 {
		t.Fatalf("Highlighted() = %d, want 1", r.Highlighted())
	}
	view := r.View()
	if !strings.Contains(view, "two") {
		t.Errorf("highlighted word missing from view: %q", view)
	}
	// The highlighted word carries styling; its neighbors do not.
	if !strings.Contains(view, "one ") {
		t.Errorf("plain words altered: %q", view)
	}
}

func TestTerminalRendererHighlightOutOfRange(t *testing.T) {
	r := NewTerminalRenderer("just three words", 80, 5, "212")
	r.HighlightWord(99)
	r.HighlightWord(-1)
	if r.Highlighted() != -1 {
		t.Errorf("out-of-range highlight changed state: %d", r.Highlighted())
	}
}

func TestTerminalRendererScrollWindow(t *testing.T) {
	// Each word is too wide to share a line at width 10, so the
	// document wraps into 12 one-word lines in a 3-line viewport.
	text := strings.TrimSpace(strings.Repeat("mountain ", 12))
	r := NewTerminalRenderer(text, 10, 3, "212")

	r.ScrollToWord(8)
	view := r.View()
	if got := len(strings.Split(view, "\n")); got != 3 {
		t.Errorf("viewport shows %d lines, want 3", got)
	}
	if r.top != 7 {
		t.Errorf("top line = %d after centering on 8, want 7", r.top)
	}

	r.ScrollToWord(11)
	if r.top != 9 {
		t.Errorf("top line = %d at timeline end, want clamp to 9", r.top)
	}
	r.ScrollToWord(0)
	if r.top != 0 {
		t.Errorf("top line = %d at start, want 0", r.top)
	}
}

func TestTerminalRendererReset(t *testing.T) {
	r := NewTerminalRenderer("several words to reset around", 8, 2, "212")
	r.HighlightWord(3)
	r.ScrollToWord(3)
	r.Reset()
	if r.Highlighted() != -1 || r.top != 0 {
		t.Errorf("reset left highlight=%d top=%d", r.Highlighted(), r.top)
	}
}

func TestListenForwardsMessages(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	r := NewTerminalRenderer("listen to the bus now", 80, 5, "212")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Listen(ctx, bus, r)

	// Subscription startup races the first publish; retry briefly.
	deadline := time.Now().Add(time.Second)
	for r.Highlighted() != 2 && time.Now().Before(deadline) {
		bus.Publish(playback.TopicHighlight, playback.HighlightMsg{Index: 2})
		time.Sleep(5 * time.Millisecond)
	}
	if r.Highlighted() != 2 {
		t.Fatal("highlight message never applied")
	}

	bus.Publish(playback.TopicReset, playback.ResetMsg{})
	deadline = time.Now().Add(time.Second)
	for r.Highlighted() != -1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.Highlighted() != -1 {
		t.Fatal("reset message never applied")
	}
}
