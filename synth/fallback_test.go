package synth

import (
	"context"
	"testing"
)

func TestFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewMockSynthesizer()
	primary.SetChunkDelay(0)
	secondary := NewMockSynthesizer()
	secondary.SetChunkDelay(0)

	f := NewFallbackSynthesizer(primary, secondary, 2)
	events, err := f.Synthesize(context.Background(), "All is well.", Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	all := drain(t, events)
	if len(chunksOf(all)) != 1 {
		t.Errorf("got %d chunks, want 1", len(chunksOf(all)))
	}
	if all[len(all)-1].Kind != KindDone {
		t.Error("healthy primary stream did not finish with KindDone")
	}
}

func TestFallbackSwitchesMidStream(t *testing.T) {
	primary := NewMockSynthesizer()
	primary.SetChunkDelay(0)
	primary.SetFailure(2) // dies on the second sentence
	secondary := NewMockSynthesizer()
	secondary.SetChunkDelay(0)

	f := NewFallbackSynthesizer(primary, secondary, 1)
	events, err := f.Synthesize(context.Background(), "One. Two. Three.", Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	all := drain(t, events)
	chunks := chunksOf(all)

	// One chunk from the primary, the remaining two from the fallback.
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks across the switch, want 3", len(chunks))
	}
	if chunks[1].Text != "Two." || chunks[2].Text != "Three." {
		t.Errorf("fallback resumed at wrong position: %q, %q", chunks[1].Text, chunks[2].Text)
	}
	if all[len(all)-1].Kind != KindDone {
		t.Error("switched stream did not finish with KindDone")
	}
}

func TestFallbackBelowThresholdPropagatesError(t *testing.T) {
	primary := NewMockSynthesizer()
	primary.SetChunkDelay(0)
	primary.SetFailure(1)
	secondary := NewMockSynthesizer()
	secondary.SetChunkDelay(0)

	f := NewFallbackSynthesizer(primary, secondary, 3)
	events, err := f.Synthesize(context.Background(), "Only sentence.", Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	all := drain(t, events)
	if all[len(all)-1].Kind != KindError {
		t.Error("below-threshold failure should surface the error")
	}
}

// namedSynth gives a mock engine a distinct name so tests can observe which
// engine a fallback chain reports as active.
type namedSynth struct {
	*MockSynthesizer
	name string
}

func (n *namedSynth) Name() string { return n.name }

func TestFallbackStaysSwitchedUntilReset(t *testing.T) {
	primary := &namedSynth{NewMockSynthesizer(), "primary"}
	primary.SetChunkDelay(0)
	primary.SetFailure(1)
	secondary := &namedSynth{NewMockSynthesizer(), "secondary"}
	secondary.SetChunkDelay(0)

	f := NewFallbackSynthesizer(primary, secondary, 1)

	events, err := f.Synthesize(context.Background(), "First run.", Options{})
	if err != nil {
		t.Fatalf("first Synthesize: %v", err)
	}
	drain(t, events)
	if f.Name() != secondary.Name() {
		t.Fatalf("active engine = %q after switch, want %q", f.Name(), secondary.Name())
	}

	// Second run goes straight to the fallback; the broken primary is
	// never consulted.
	events, err = f.Synthesize(context.Background(), "Second run.", Options{})
	if err != nil {
		t.Fatalf("second Synthesize: %v", err)
	}
	all := drain(t, events)
	if all[len(all)-1].Kind != KindDone {
		t.Error("fallback run did not complete")
	}

	f.Reset()
	if f.Name() != primary.Name() {
		t.Errorf("active engine after Reset = %q, want %q", f.Name(), primary.Name())
	}
}
