package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/readaloud/playback"
	"github.com/dgnsrekt/readaloud/transport"
)

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{
		Type:  tea.KeyRunes,
		Runes: []rune(key),
	}
}

func nextControl(t *testing.T, sub *transport.Subscription) playback.ControlMsg {
	t.Helper()
	select {
	case msg := <-sub.C():
		ctrl, ok := msg.Payload.(playback.ControlMsg)
		if !ok {
			t.Fatalf("unexpected payload %T", msg.Payload)
		}
		return ctrl
	case <-time.After(time.Second):
		t.Fatal("no control message published")
	}
	return playback.ControlMsg{}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	ctrl := bus.Subscribe(playback.TopicControl)
	m := NewModel("Doc", "some words here", bus, "212")

	_, cmd := m.Update(keyMsg(" "))
	if cmd != nil {
		t.Error("toggle should not produce a command")
	}
	got := nextControl(t, ctrl)
	if got.Command != playback.CommandToggle {
		t.Errorf("command = %v, want toggle", got.Command)
	}
	if got.Source != "keyboard" {
		t.Errorf("source = %q", got.Source)
	}
}

func TestStopKey(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	ctrl := bus.Subscribe(playback.TopicControl)
	m := NewModel("Doc", "some words here", bus, "212")

	m.Update(keyMsg("s"))
	if got := nextControl(t, ctrl); got.Command != playback.CommandStop {
		t.Errorf("command = %v, want stop", got.Command)
	}
}

func TestQuitStopsAndExits(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	ctrl := bus.Subscribe(playback.TopicControl)
	m := NewModel("Doc", "some words here", bus, "212")

	updated, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("quit should produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	if got := nextControl(t, ctrl); got.Command != playback.CommandStop {
		t.Errorf("command = %v, want stop before quitting", got.Command)
	}
	if updated.(Model).View() != "" {
		t.Error("quitting model should render nothing")
	}
}

func TestBusMessagesDriveRenderer(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	m := NewModel("Doc", "alpha beta gamma delta", bus, "212")

	model, cmd := m.Update(busMsg{msg: transport.Message{
		Topic:   playback.TopicHighlight,
		Payload: playback.HighlightMsg{Index: 2},
	}})
	if cmd == nil {
		t.Error("bus message should re-arm the subscription wait")
	}
	m = model.(Model)
	if got := m.renderer.Highlighted(); got != 2 {
		t.Errorf("highlighted = %d, want 2", got)
	}
	if m.status.word != 2 {
		t.Errorf("status word = %d, want 2", m.status.word)
	}

	model, _ = m.Update(busMsg{msg: transport.Message{
		Topic:   playback.TopicReset,
		Payload: playback.ResetMsg{},
	}})
	m = model.(Model)
	if got := m.renderer.Highlighted(); got != -1 {
		t.Errorf("highlighted after reset = %d, want -1", got)
	}
}

func TestStateMessagesDriveStatusBar(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	m := NewModel("Doc", "alpha beta gamma", bus, "212")

	model, _ := m.Update(busMsg{msg: transport.Message{
		Topic:   playback.TopicState,
		Payload: playback.StateChangedMsg{State: playback.StatePlaying},
	}})
	m = model.(Model)
	if m.status.state != playback.StatePlaying {
		t.Errorf("status state = %v, want playing", m.status.state)
	}

	model, _ = m.Update(busMsg{msg: transport.Message{
		Topic:   playback.TopicState,
		Payload: playback.StateChangedMsg{State: playback.StateStopped, Reason: "complete"},
	}})
	m = model.(Model)
	if m.status.state != playback.StateStopped {
		t.Errorf("status state = %v, want stopped", m.status.state)
	}
	if m.status.errText != "" {
		t.Errorf("clean completion recorded an error: %q", m.status.errText)
	}
}

func TestWindowResizeReflowsDocument(t *testing.T) {
	bus := transport.NewBus()
	defer bus.Close()
	m := NewModel("Doc", "alpha beta gamma delta epsilon zeta", bus, "212")

	model, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})
	m = model.(Model)
	if m.width != 20 || m.height != 10 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
	view := m.View()
	if view == "" {
		t.Error("view should render after resize")
	}
}

func TestBusClosedQuits(t *testing.T) {
	bus := transport.NewBus()
	m := NewModel("Doc", "alpha beta", bus, "212")
	bus.Close()

	_, cmd := m.Update(busClosedMsg{})
	if cmd == nil {
		t.Fatal("closed bus should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
}
