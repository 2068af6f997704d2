// Package ui is the interactive reader: the document with the spoken
// word highlighted, plus a status bar, driven by playback messages.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/playback"
	"github.com/dgnsrekt/readaloud/render"
	"github.com/dgnsrekt/readaloud/timing"
	"github.com/dgnsrekt/readaloud/transport"
)

// busMsg wraps a playback message delivered over the bus so it can
// flow through the bubbletea update loop.
type busMsg struct {
	msg transport.Message
}

// busClosedMsg signals that the bus subscription ended.
type busClosedMsg struct{}

// Model is the player TUI.
type Model struct {
	title    string
	renderer *render.TerminalRenderer
	status   *statusDisplay
	bus      *transport.Bus
	sub      *transport.Subscription
	width    int
	height   int
	quitting bool
}

// NewModel builds the player for the given document text.
func NewModel(title, text string, bus *transport.Bus, highlightColor string) Model {
	sub := bus.Subscribe(
		playback.TopicState,
		playback.TopicHighlight,
		playback.TopicScroll,
		playback.TopicProgress,
		playback.TopicReset,
	)
	return Model{
		title:    title,
		renderer: render.NewTerminalRenderer(text, 80, 24, highlightColor),
		status:   newStatusDisplay(len(timing.TokenizeText(text))),
		bus:      bus,
		sub:      sub,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForBus(m.sub)
}

// waitForBus blocks on the subscription and feeds the next playback
// message into the update loop.
func waitForBus(sub *transport.Subscription) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub.C()
		if !ok {
			return busClosedMsg{}
		}
		return busMsg{msg: msg}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer.Resize(msg.Width, msg.Height-3)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case busMsg:
		m.handlePlayback(msg.msg.Payload)
		return m, waitForBus(m.sub)

	case busClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		m.bus.Publish(playback.TopicControl, playback.ControlMsg{
			Command: playback.CommandToggle,
			Source:  "keyboard",
		})
	case "s":
		m.bus.Publish(playback.TopicControl, playback.ControlMsg{
			Command: playback.CommandStop,
			Source:  "keyboard",
		})
	case "q", "ctrl+c", "esc":
		m.bus.Publish(playback.TopicControl, playback.ControlMsg{
			Command: playback.CommandStop,
			Source:  "keyboard",
		})
		m.quitting = true
		m.sub.Close()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handlePlayback(payload any) {
	switch p := payload.(type) {
	case playback.HighlightMsg:
		m.renderer.HighlightWord(p.Index)
		m.status.setWord(p.Index)
	case playback.ScrollMsg:
		m.renderer.ScrollToWord(p.Index)
	case playback.StateChangedMsg:
		m.status.apply(p)
		log.Debug("player state", "state", p.State, "reason", p.Reason)
	case playback.ProgressMsg:
		m.status.setProgress(p.Percent)
	case playback.ResetMsg:
		m.renderer.Reset()
		m.status.reset()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	header := titleStyle.Render(m.title)

	width := m.width
	if width <= 0 {
		width = 80
	}
	return header + "\n" + m.renderer.View() + "\n" + m.status.bar(width)
}
