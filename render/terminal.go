package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/readaloud/timing"
)

// line is one wrapped display line, as a half-open range of word indices.
type line struct {
	start, end int
}

// TerminalRenderer lays the document's words out for a fixed-width terminal
// and renders a viewport with the spoken word highlighted. Words are
// wrapped greedily by display width so a word index always maps to exactly
// one line.
type TerminalRenderer struct {
	mu        sync.Mutex
	words     []string
	lines     []line
	width     int
	height    int
	top       int // first visible line
	highlight int // highlighted word index, -1 for none

	highlightStyle lipgloss.Style
}

// NewTerminalRenderer wraps text for the given viewport. color is a
// lipgloss color for the highlight background.
func NewTerminalRenderer(text string, width, height int, color string) *TerminalRenderer {
	if width < 10 {
		width = 10
	}
	if height < 1 {
		height = 1
	}
	r := &TerminalRenderer{
		words:     timing.TokenizeText(text),
		width:     width,
		height:    height,
		highlight: -1,
		highlightStyle: lipgloss.NewStyle().
			Background(lipgloss.Color(color)).
			Foreground(lipgloss.Color("0")),
	}
	r.reflow()
	return r
}

// reflow rebuilds the line table for the current width.
func (r *TerminalRenderer) reflow() {
	r.lines = r.lines[:0]
	start := 0
	used := 0
	for i, w := range r.words {
		ww := runewidth.StringWidth(w)
		sep := 0
		if i > start {
			sep = 1
		}
		if i > start && used+sep+ww > r.width {
			r.lines = append(r.lines, line{start: start, end: i})
			start = i
			used = ww
			continue
		}
		used += sep + ww
	}
	if start < len(r.words) {
		r.lines = append(r.lines, line{start: start, end: len(r.words)})
	}
}

// Resize re-wraps for a new viewport size.
func (r *TerminalRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width >= 10 {
		r.width = width
	}
	if height >= 1 {
		r.height = height
	}
	r.reflow()
	r.scrollToLocked(r.highlight)
}

// HighlightWord implements Renderer.
func (r *TerminalRenderer) HighlightWord(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.words) {
		return
	}
	r.highlight = index
}

// ScrollToWord implements Renderer.
func (r *TerminalRenderer) ScrollToWord(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrollToLocked(index)
}

// Reset implements Renderer.
func (r *TerminalRenderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlight = -1
	r.top = 0
}

// Word returns the word at index.
func (r *TerminalRenderer) Word(index int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.words) {
		return "", false
	}
	return r.words[index], true
}

// Highlighted returns the current word index, -1 when nothing is spoken.
func (r *TerminalRenderer) Highlighted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highlight
}

// View renders the visible window.
func (r *TerminalRenderer) View() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	bottom := r.top + r.height
	if bottom > len(r.lines) {
		bottom = len(r.lines)
	}
	for li := r.top; li < bottom; li++ {
		ln := r.lines[li]
		parts := make([]string, 0, ln.end-ln.start)
		for wi := ln.start; wi < ln.end; wi++ {
			if wi == r.highlight {
				parts = append(parts, r.highlightStyle.Render(r.words[wi]))
			} else {
				parts = append(parts, r.words[wi])
			}
		}
		row := strings.Join(parts, " ")
		// Styled rows can only grow; clip plain rows that are too wide
		// after a shrink.
		if r.highlight < ln.start || r.highlight >= ln.end {
			row = truncate.String(row, uint(r.width))
		}
		b.WriteString(row)
		if li < bottom-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// scrollToLocked centers the viewport on the line holding word index.
func (r *TerminalRenderer) scrollToLocked(index int) {
	if index < 0 {
		return
	}
	li := r.lineOf(index)
	if li < 0 {
		return
	}
	top := li - r.height/2
	maxTop := len(r.lines) - r.height
	if top > maxTop {
		top = maxTop
	}
	if top < 0 {
		top = 0
	}
	r.top = top
}

// lineOf returns the display line containing word index, or -1.
func (r *TerminalRenderer) lineOf(index int) int {
	for li, ln := range r.lines {
		if index >= ln.start && index < ln.end {
			return li
		}
	}
	return -1
}
