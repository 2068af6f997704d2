package playback

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/extract"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/synth"
	"github.com/dgnsrekt/readaloud/transport"
)

// textExtractor passes source straight through, counting words.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, source string) (extract.Result, error) {
	words := strings.Fields(source)
	if len(words) == 0 {
		return extract.Result{}, extract.ErrNoContent
	}
	return extract.Result{Text: source, WordCount: len(words)}, nil
}

// scriptedSynth emits a fixed chunk sequence regardless of input.
type scriptedSynth struct {
	chunks []*synth.Chunk
}

func (s *scriptedSynth) Synthesize(ctx context.Context, _ string, _ synth.Options) (<-chan synth.Event, error) {
	events := make(chan synth.Event)
	go func() {
		defer close(events)
		for _, c := range s.chunks {
			select {
			case events <- synth.Event{Kind: synth.KindChunk, Chunk: c}:
			case <-ctx.Done():
				events <- synth.Event{Kind: synth.KindError, Err: ctx.Err()}
				return
			}
		}
		events <- synth.Event{Kind: synth.KindDone}
	}()
	return events, nil
}

func (s *scriptedSynth) Name() string     { return "scripted" }
func (s *scriptedSynth) Available() bool  { return true }
func (s *scriptedSynth) SetSpeed(float64) {}

// silentChunk builds a chunk of silence with the given text and duration.
func silentChunk(text string, d time.Duration) *synth.Chunk {
	const rate = 22050
	samples := int(d.Seconds() * rate)
	return &synth.Chunk{Text: text, Samples: make([]byte, samples*2), SampleRate: rate}
}

func testOrchestrator(t *testing.T, s synth.Synthesizer) (*Orchestrator, *audio.MockSink, *transport.Bus) {
	t.Helper()
	sink := audio.NewMockSink()
	bus := transport.NewBus()
	t.Cleanup(bus.Close)
	cfg := DefaultConfig()
	cfg.Engine = "mock"
	o := NewOrchestrator(textExtractor{}, s, sink, bus, cfg)
	t.Cleanup(func() { o.Stop() })
	return o, sink, bus
}

// waitTimeline polls until the session timeline reaches n words or fails
// the test.
func waitTimeline(t *testing.T, o *Orchestrator, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		words, _ := o.TimelineSnapshot()
		if len(words) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	words, _ := o.TimelineSnapshot()
	t.Fatalf("timeline reached %d words, want %d", len(words), n)
}

func waitState(t *testing.T, o *Orchestrator, want StateType) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", o.State(), want)
}

func TestOrchestratorMultiChunkTimeline(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{
		silentChunk("Alpha beta.", time.Second),
		silentChunk("Gamma delta epsilon.", 1500*time.Millisecond),
	}}
	o, sink, _ := testOrchestrator(t, script)

	if err := o.Play(context.Background(), "Alpha beta. Gamma delta epsilon."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitTimeline(t, o, 5)

	words, _ := o.TimelineSnapshot()
	if len(words) != 5 {
		t.Fatalf("timeline has %d words, want 5", len(words))
	}
	// Second chunk's words continue the first chunk's clock and index
	// space: first word of chunk two starts at 1s with index 2.
	if words[2].Start != time.Second {
		t.Errorf("chunk two starts at %v, want 1s", words[2].Start)
	}
	for i, w := range words {
		if w.Index != i {
			t.Errorf("word %d has index %d", i, w.Index)
		}
		if i > 0 && w.Start != words[i-1].End {
			t.Errorf("gap at word %d: %v != %v", i, words[i-1].End, w.Start)
		}
	}
	if end := words[4].End; end != 2500*time.Millisecond {
		t.Errorf("timeline ends at %v, want 2.5s", end)
	}
	if sink.ChunkCount() != 2 {
		t.Errorf("sink received %d chunks, want 2", sink.ChunkCount())
	}
}

func TestOrchestratorPlayWhilePlayingIsNoOp(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{silentChunk("Some words here.", 10 * time.Second)}}
	o, sink, _ := testOrchestrator(t, script)

	if err := o.Play(context.Background(), "Some words here."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitState(t, o, StatePlaying)
	before := sink.ChunkCount()

	if err := o.Play(context.Background(), "A different document."); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if o.State() != StatePlaying {
		t.Errorf("state = %v after duplicate play", o.State())
	}
	if sink.ChunkCount() != before {
		t.Error("duplicate play restarted generation")
	}
}

func TestOrchestratorPauseResume(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{silentChunk("One two three four five six.", 3 * time.Second)}}
	o, sink, _ := testOrchestrator(t, script)

	if err := o.Play(context.Background(), "One two three four five six."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitState(t, o, StatePlaying)
	time.Sleep(50 * time.Millisecond)

	if err := o.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if o.State() != StatePaused {
		t.Fatalf("state = %v, want paused", o.State())
	}
	pausedAt := o.sched.Cursor()

	// Time spent paused must not advance the word position.
	time.Sleep(100 * time.Millisecond)
	if o.sched.Cursor() != pausedAt {
		t.Errorf("cursor moved while paused: %d -> %d", pausedAt, o.sched.Cursor())
	}

	if err := o.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if o.State() != StatePlaying {
		t.Fatalf("state = %v, want playing", o.State())
	}
	pauses, resumes, _ := sink.Counts()
	if pauses != 1 || resumes != 1 {
		t.Errorf("sink pause/resume = %d/%d, want 1/1", pauses, resumes)
	}
}

func TestOrchestratorPauseWithoutSession(t *testing.T) {
	o, _, _ := testOrchestrator(t, &scriptedSynth{})
	if err := o.Pause(); err != ErrNoSession {
		t.Errorf("Pause with no session = %v, want ErrNoSession", err)
	}
	if err := o.Resume(); err != ErrNoSession {
		t.Errorf("Resume with no session = %v, want ErrNoSession", err)
	}
}

func TestOrchestratorStopBroadcastsReset(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{silentChunk("Words to stop.", 10 * time.Second)}}
	o, sink, bus := testOrchestrator(t, script)
	sub := bus.Subscribe(TopicReset, TopicState)

	if err := o.Play(context.Background(), "Words to stop."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitState(t, o, StatePlaying)
	if err := o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if o.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", o.State())
	}
	if _, _, stops := sink.Counts(); stops != 1 {
		t.Errorf("sink stops = %d, want 1", stops)
	}

	sawReset := false
	timeout := time.After(time.Second)
	for !sawReset {
		select {
		case msg := <-sub.C():
			if msg.Topic == TopicReset {
				sawReset = true
			}
		case <-timeout:
			t.Fatal("no reset broadcast after stop")
		}
	}
}

func TestOrchestratorCompletion(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{silentChunk("Quick end.", 100 * time.Millisecond)}}
	o, sink, bus := testOrchestrator(t, script)
	sub := bus.Subscribe(TopicState)

	if err := o.Play(context.Background(), "Quick end."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitState(t, o, StatePlaying)
	waitState(t, o, StateStopped)

	var final StateChangedMsg
	timeout := time.After(time.Second)
drainLoop:
	for {
		select {
		case msg := <-sub.C():
			if sc, ok := msg.Payload.(StateChangedMsg); ok && sc.State == StateStopped {
				final = sc
				break drainLoop
			}
		case <-timeout:
			t.Fatal("no stopped broadcast after completion")
		}
	}
	if final.Reason != "complete" {
		t.Errorf("completion reason = %q, want %q", final.Reason, "complete")
	}
	// Natural completion lets queued audio drain instead of cutting it.
	if _, _, stops := sink.Counts(); stops != 0 {
		t.Errorf("sink stops = %d on natural completion, want 0", stops)
	}
}

func TestOrchestratorExtractionFailure(t *testing.T) {
	o, _, bus := testOrchestrator(t, &scriptedSynth{})
	sub := bus.Subscribe(TopicState)

	if err := o.Play(context.Background(), "   "); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitState(t, o, StateStopped)

	timeout := time.After(time.Second)
	for {
		select {
		case msg := <-sub.C():
			if sc, ok := msg.Payload.(StateChangedMsg); ok && sc.State == StateStopped {
				if sc.Reason == "" {
					t.Error("failure broadcast carries no reason")
				}
				return
			}
		case <-timeout:
			t.Fatal("no stopped broadcast after extraction failure")
		}
	}
}

func TestOrchestratorDropsZeroDurationChunks(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{
		{Text: "ghost words here", Samples: nil, SampleRate: 22050},
		silentChunk("Real words.", 500 * time.Millisecond),
	}}
	o, _, _ := testOrchestrator(t, script)

	if err := o.Play(context.Background(), "ghost words here Real words."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitTimeline(t, o, 2)

	words, _ := o.TimelineSnapshot()
	for _, w := range words {
		if w.Word == "ghost" {
			t.Error("zero-duration chunk produced timeline entries")
		}
	}
}

func TestOrchestratorDropsNilChunk(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{
		nil,
		silentChunk("Still here.", 500 * time.Millisecond),
	}}
	o, _, _ := testOrchestrator(t, script)

	if err := o.Play(context.Background(), "Still here."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	// A nil chunk must be dropped, not crash the session goroutine;
	// the following real chunk still builds the timeline.
	waitTimeline(t, o, 2)

	words, _ := o.TimelineSnapshot()
	if len(words) != 2 {
		t.Fatalf("timeline has %d words, want 2", len(words))
	}
}

// shiftClock is a wall clock with an adjustable offset, shared between
// the orchestrator and its scheduler.
type shiftClock struct {
	mu    sync.Mutex
	shift time.Duration
}

func (c *shiftClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.shift)
}

func (c *shiftClock) advance(d time.Duration) {
	c.mu.Lock()
	c.shift += d
	c.mu.Unlock()
}

func TestOrchestratorLongPauseIsTimeNeutral(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{silentChunk("One two three four five six.", 3 * time.Second)}}
	o, _, bus := testOrchestrator(t, script)

	clock := &shiftClock{}
	o.now = clock.now
	o.sched.now = clock.now

	sub := bus.Subscribe(TopicHighlight)

	if err := o.Play(context.Background(), "One two three four five six."); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitState(t, o, StatePlaying)

	// Wait for the first word so the cursor has a known floor.
	select {
	case <-sub.C():
	case <-time.After(2 * time.Second):
		t.Fatal("no initial highlight")
	}

	if err := o.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	pausedAt := o.sched.Cursor()

	// Simulate a minutes-long pause. The resume anchor is recomputed
	// from the current clock, so none of this gap may appear in the
	// next dispatch delay.
	clock.advance(5 * time.Minute)

	resumedAt := time.Now()
	if err := o.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub.C():
			hl, ok := msg.Payload.(HighlightMsg)
			if !ok || hl.Index < pausedAt {
				continue
			}
			// The next word was at most 500ms away when playback
			// paused; it must fire promptly, not 5 minutes late.
			if elapsed := time.Since(resumedAt); elapsed > time.Second {
				t.Errorf("highlight %d arrived %v after resume", hl.Index, elapsed)
			}
			return
		case <-timeout:
			t.Fatal("no highlight after resume with simulated long pause")
		}
	}
}

func TestOrchestratorControlMessages(t *testing.T) {
	script := &scriptedSynth{chunks: []*synth.Chunk{silentChunk("Controlled by bus.", 5 * time.Second)}}
	o, _, bus := testOrchestrator(t, script)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.ListenControl(ctx)

	bus.Publish(TopicControl, ControlMsg{Command: CommandPlay, Source: "Controlled by bus."})
	waitState(t, o, StatePlaying)

	bus.Publish(TopicControl, ControlMsg{Command: CommandToggle})
	waitState(t, o, StatePaused)

	bus.Publish(TopicControl, ControlMsg{Command: CommandToggle})
	waitState(t, o, StatePlaying)

	bus.Publish(TopicControl, ControlMsg{Command: CommandStop})
	waitState(t, o, StateStopped)
}
