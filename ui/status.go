package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/readaloud/playback"
)

// statusDisplay tracks playback state for the status bar.
type statusDisplay struct {
	state      playback.StateType
	progress   int
	word       int
	totalWords int
	errText    string
}

func newStatusDisplay(totalWords int) *statusDisplay {
	return &statusDisplay{state: playback.StateStopped, word: -1, totalWords: totalWords}
}

func (s *statusDisplay) apply(msg playback.StateChangedMsg) {
	s.state = msg.State
	if msg.State == playback.StateStopped {
		s.progress = 0
		if msg.Reason != "" && msg.Reason != "stopped" && msg.Reason != "complete" {
			s.errText = msg.Reason
		}
	} else {
		s.errText = ""
	}
}

func (s *statusDisplay) setProgress(percent int) {
	s.progress = percent
}

func (s *statusDisplay) setWord(index int) {
	s.word = index
}

func (s *statusDisplay) reset() {
	s.state = playback.StateStopped
	s.progress = 0
	s.word = -1
}

// bar renders a single status line fitted to width.
func (s *statusDisplay) bar(width int) string {
	icon, color := s.stateLook()
	stateStyle := lipgloss.NewStyle().Foreground(color)
	status := stateStyle.Render(fmt.Sprintf("%s %s", icon, s.state))

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	if s.state == playback.StateLoading && s.progress > 0 {
		status += dimStyle.Render(fmt.Sprintf(" %d%%", s.progress))
	}
	if (s.state == playback.StatePlaying || s.state == playback.StatePaused) && s.word >= 0 && s.totalWords > 0 {
		status += dimStyle.Render(fmt.Sprintf(" %d/%d", s.word+1, s.totalWords))
	}

	if s.errText != "" {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
		status += " " + errStyle.Render(truncate.StringWithTail(s.errText, uint(max(width-20, 10)), "..."))
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	help := helpStyle.Render("  space: pause/resume · s: stop · q: quit")
	return truncate.String(status+help, uint(width))
}

func (s *statusDisplay) stateLook() (string, lipgloss.Color) {
	switch s.state {
	case playback.StatePlaying:
		return "▶", lipgloss.Color("#00FF00")
	case playback.StatePaused:
		return "⏸", lipgloss.Color("#FFFF00")
	case playback.StateLoading:
		return "⟳", lipgloss.Color("#00AAFF")
	default:
		return "■", lipgloss.Color("#888888")
	}
}
