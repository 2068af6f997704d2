package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/extract"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/synth"
	"github.com/dgnsrekt/readaloud/timing"
	"github.com/dgnsrekt/readaloud/transport"
)

// Orchestrator runs read-aloud sessions. It is the only writer of the
// lifecycle state machine and the session timeline; the scheduler reads the
// timeline through TimelineSnapshot and reports word positions back through
// its hooks.
//
// Lock order: scheduler methods are never called while holding o.mu, and
// scheduler hooks take o.mu only through TimelineSnapshot and the bus.
type Orchestrator struct {
	mu      sync.Mutex
	machine *StateMachine
	session *Session
	cancel  context.CancelFunc

	sched     *Scheduler
	extractor extract.Extractor
	synth     synth.Synthesizer
	sink      audio.Sink
	bus       *transport.Bus
	cfg       Config

	// now is replaceable in tests.
	now func() time.Time
}

// NewOrchestrator wires the playback core together.
func NewOrchestrator(extractor extract.Extractor, synthesizer synth.Synthesizer, sink audio.Sink, bus *transport.Bus, cfg Config) *Orchestrator {
	o := &Orchestrator{
		machine:   NewStateMachine(),
		extractor: extractor,
		synth:     synthesizer,
		sink:      sink,
		bus:       bus,
		cfg:       cfg,
		now:       time.Now,
	}
	o.sched = NewScheduler(o, SchedulerHooks{
		OnHighlight: o.publishHighlight,
		OnScroll:    o.publishScroll,
		OnComplete:  o.completeSession,
	}, cfg.SchedulerConfig())
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() StateType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.Current()
}

// TimelineSnapshot implements TimelineSource for the scheduler.
func (o *Orchestrator) TimelineSnapshot() ([]timing.WordTiming, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, true
	}
	return o.session.Timeline, o.session.GenerationDone
}

// Play starts reading source aloud. While loading or playing it is a
// logged no-op; while paused it resumes the existing session instead of
// starting over.
func (o *Orchestrator) Play(ctx context.Context, source string) error {
	o.mu.Lock()
	switch o.machine.Current() {
	case StateLoading, StatePlaying:
		log.Debug("play ignored", "state", o.machine.Current())
		o.mu.Unlock()
		return nil
	case StatePaused:
		o.mu.Unlock()
		return o.Resume()
	}

	o.machine.Transition(StateLoading)
	sessCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	o.broadcastState(StateLoading, 0, "")
	go o.runSession(sessCtx, source)
	return nil
}

// Pause suspends the active session at the current word.
func (o *Orchestrator) Pause() error {
	// Stop the scheduler first: once Pause returns, no highlight can
	// land after the state change.
	o.sched.Pause()
	position := o.sched.Cursor()

	o.mu.Lock()
	if o.session == nil || !o.machine.Transition(StatePaused) {
		// Not playing: the scheduler was not running, so the pause
		// above changed nothing.
		o.mu.Unlock()
		return ErrNoSession
	}
	id := o.session.ID
	o.mu.Unlock()

	o.sink.Pause()
	o.broadcastStateWithID(StatePaused, position, id, "")
	log.Info("playback paused", "position", position)
	return nil
}

// Resume continues a paused session from its kept word position.
func (o *Orchestrator) Resume() error {
	position := o.sched.Cursor()

	o.mu.Lock()
	if o.session == nil || !o.machine.Transition(StatePlaying) {
		o.mu.Unlock()
		return ErrNoSession
	}
	anchor := o.resumeAnchorLocked(position)
	o.session.AudioStart = anchor
	id := o.session.ID
	o.mu.Unlock()

	o.sink.Resume()
	o.sched.Resume(anchor)
	o.broadcastStateWithID(StatePlaying, position, id, "")
	log.Info("playback resumed", "position", position)
	return nil
}

// Toggle pauses while playing, resumes while paused, and is otherwise a
// no-op.
func (o *Orchestrator) Toggle() error {
	switch o.State() {
	case StatePlaying:
		return o.Pause()
	case StatePaused:
		return o.Resume()
	default:
		return nil
	}
}

// Stop ends the session immediately, discarding unplayed audio.
func (o *Orchestrator) Stop() error {
	return o.endSession("stopped", true)
}

// Close stops any session and releases the audio device.
func (o *Orchestrator) Close() error {
	o.endSession("stopped", true)
	return o.sink.Close()
}

// ListenControl consumes ControlMsg traffic from the bus until ctx ends.
func (o *Orchestrator) ListenControl(ctx context.Context) {
	sub := o.bus.Subscribe(TopicControl)
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
			ctrl, ok := msg.Payload.(ControlMsg)
			if !ok {
				continue
			}
			var err error
			switch ctrl.Command {
			case CommandPlay:
				err = o.Play(ctx, ctrl.Source)
			case CommandPause:
				err = o.Pause()
			case CommandStop:
				err = o.Stop()
			case CommandToggle:
				err = o.Toggle()
			}
			if err != nil && !errors.Is(err, ErrNoSession) {
				log.Error("control command failed", "command", ctrl.Command, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// runSession extracts, synthesizes, and feeds the session until generation
// finishes or fails. It runs on its own goroutine.
func (o *Orchestrator) runSession(ctx context.Context, source string) {
	result, err := o.extractor.Extract(ctx, source)
	if err != nil {
		o.failSession(NewError(err, "extract", "extract text", false), ErrExtractionFailed)
		return
	}

	o.mu.Lock()
	if o.machine.Current() != StateLoading {
		// Stopped while extracting.
		o.mu.Unlock()
		return
	}
	sess := NewSession(result.Title, result.WordCount)
	o.session = sess
	o.mu.Unlock()
	log.Info("session started", "id", sess.ID, "title", result.Title, "words", result.WordCount)

	stream, err := o.synth.Synthesize(ctx, result.Text, synth.Options{Voice: o.cfg.Voice, Speed: o.cfg.Speed})
	if err != nil {
		o.failSession(NewError(err, "synth", "start generation", false), ErrGenerationFailed)
		return
	}

	for ev := range stream {
		switch ev.Kind {
		case synth.KindChunk:
			o.handleChunk(sess, ev.Chunk)
		case synth.KindProgress:
			o.bus.Publish(TopicProgress, ProgressMsg{Percent: ev.Progress, SessionID: sess.ID})
		case synth.KindDone:
			o.mu.Lock()
			if o.session == sess {
				sess.GenerationDone = true
			}
			o.mu.Unlock()
			log.Debug("generation complete", "id", sess.ID, "duration", sess.Accumulated)
		case synth.KindError:
			if ctx.Err() != nil {
				return // session was stopped; not a failure
			}
			o.failSession(NewError(ev.Err, "synth", "generate audio", false), ErrGenerationFailed)
			return
		}
	}
}

// handleChunk appends one chunk's timings to the session timeline, starts
// playback on the first chunk, and enqueues the audio.
func (o *Orchestrator) handleChunk(sess *Session, chunk *synth.Chunk) {
	if chunk == nil {
		log.Warn("dropping nil audio chunk")
		return
	}
	if chunk.SampleCount() == 0 || chunk.SampleRate <= 0 {
		log.Warn("dropping empty audio chunk", "text", chunk.Text)
		return
	}

	timings := timing.CalculateWordTimings(chunk.Text, chunk.Phonemes, 0, chunk.SampleCount(), chunk.SampleRate)

	o.mu.Lock()
	if o.session != sess {
		o.mu.Unlock()
		return
	}
	state := o.machine.Current()
	if state != StateLoading && state != StatePlaying && state != StatePaused {
		o.mu.Unlock()
		return
	}

	// Re-base chunk-local timings onto the session timeline.
	base := sess.Accumulated
	baseIndex := len(sess.Timeline)
	for i := range timings {
		timings[i].Start += base
		timings[i].End += base
		timings[i].Index += baseIndex
	}
	sess.Timeline = append(sess.Timeline, timings...)
	sess.Accumulated += chunk.Duration()

	firstChunk := state == StateLoading
	var audioStart time.Time
	var id string
	if firstChunk {
		o.machine.Transition(StatePlaying)
		audioStart = o.now()
		sess.AudioStart = audioStart
		id = sess.ID
	}
	o.mu.Unlock()

	if err := o.sink.EnqueuePCM(chunk.Samples, chunk.SampleRate); err != nil {
		log.Error("audio enqueue failed", "err", err)
	}
	if firstChunk {
		o.sched.Start(audioStart, 0)
		o.broadcastStateWithID(StatePlaying, 0, id, "")
		log.Debug("first chunk ready, playback started", "words", len(timings))
	}
}

// completeSession runs when the scheduler dispatched the final word of a
// finished timeline. Queued audio is left to drain rather than cut off.
func (o *Orchestrator) completeSession() {
	o.endSessionKeepAudio("complete")
	log.Info("playback complete")
}

func (o *Orchestrator) failSession(perr *Error, sentinel error) {
	if errors.Is(perr.Err, context.Canceled) {
		return
	}
	log.Error("session failed", "component", perr.Component, "action", perr.Action, "err", perr.Err)
	o.endSession(errors.Join(sentinel, perr).Error(), true)
}

// endSession tears the session down. stopAudio discards queued audio;
// natural completion keeps it so the last words play out.
func (o *Orchestrator) endSession(reason string, stopAudio bool) error {
	o.sched.Stop()

	o.mu.Lock()
	if o.session == nil && o.machine.Current() == StateStopped {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.machine.Transition(StateStopped)
	o.session = nil
	o.mu.Unlock()

	if stopAudio {
		o.sink.Stop()
	}
	o.bus.Publish(TopicReset, ResetMsg{})
	o.broadcastState(StateStopped, 0, reason)
	return nil
}

func (o *Orchestrator) endSessionKeepAudio(reason string) {
	o.endSession(reason, false)
}

func (o *Orchestrator) publishHighlight(index int) {
	o.bus.Publish(TopicHighlight, HighlightMsg{Index: index})
}

func (o *Orchestrator) publishScroll(index int) {
	o.bus.Publish(TopicScroll, ScrollMsg{Index: index})
}

func (o *Orchestrator) broadcastState(state StateType, position int, reason string) {
	o.mu.Lock()
	id := ""
	if o.session != nil {
		id = o.session.ID
	}
	o.mu.Unlock()
	o.broadcastStateWithID(state, position, id, reason)
}

func (o *Orchestrator) broadcastStateWithID(state StateType, position int, id, reason string) {
	o.bus.Publish(TopicState, StateChangedMsg{
		State:     state,
		Position:  position,
		SessionID: id,
		Reason:    reason,
	})
}

// resumeAnchorLocked computes the wall-clock anchor that places the word at
// position exactly now: resuming never replays or skips time spent paused.
func (o *Orchestrator) resumeAnchorLocked(position int) time.Time {
	now := o.now()
	if o.session == nil || len(o.session.Timeline) == 0 {
		return now
	}
	tl := o.session.Timeline
	if position >= len(tl) {
		return now.Add(-tl[len(tl)-1].End)
	}
	return now.Add(-tl[position].Start)
}
