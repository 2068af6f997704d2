package synth

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// FallbackSynthesizer wraps a primary engine and switches to a fallback
// after the primary fails maxFailures times. Once switched it stays on the
// fallback until Reset. A switch can happen mid-document: the failed
// stream's remaining text is re-synthesized by the fallback, emitting the
// same event shape, so consumers never see the seam.
type FallbackSynthesizer struct {
	primary  Synthesizer
	fallback Synthesizer

	mu            sync.Mutex
	failures      int
	maxFailures   int
	usingFallback bool
}

// NewFallbackSynthesizer wires a primary engine to a fallback. maxFailures
// below 1 is treated as 1.
func NewFallbackSynthesizer(primary, fallback Synthesizer, maxFailures int) *FallbackSynthesizer {
	if maxFailures < 1 {
		maxFailures = 1
	}
	f := &FallbackSynthesizer{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
	}
	if !primary.Available() {
		log.Warn("primary synthesis engine unavailable, starting on fallback",
			"primary", primary.Name(), "fallback", fallback.Name())
		f.usingFallback = true
	}
	return f
}

// Name implements Synthesizer, reporting the currently active engine.
func (f *FallbackSynthesizer) Name() string {
	return f.active().Name()
}

// Available implements Synthesizer: true if either engine works.
func (f *FallbackSynthesizer) Available() bool {
	return f.primary.Available() || f.fallback.Available()
}

// SetSpeed implements Synthesizer, applying to both engines so a mid-stream
// switch keeps the rate.
func (f *FallbackSynthesizer) SetSpeed(speed float64) {
	f.primary.SetSpeed(speed)
	f.fallback.SetSpeed(speed)
}

// Reset returns to the primary engine and clears the failure count.
func (f *FallbackSynthesizer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = 0
	f.usingFallback = false
}

// Synthesize implements Synthesizer. Errors from the primary's stream count
// toward the failure threshold; on crossing it the unfinished sentences are
// replayed through the fallback within the same output stream.
func (f *FallbackSynthesizer) Synthesize(ctx context.Context, text string, opts Options) (<-chan Event, error) {
	engine := f.active()
	stream, err := engine.Synthesize(ctx, text, opts)
	if err != nil {
		if engine == f.primary {
			if next, ferr := f.recordFailure(ctx, text, opts, err); ferr == nil {
				return next, nil
			}
		}
		return nil, err
	}
	if engine != f.primary {
		return stream, nil
	}

	out := make(chan Event)
	go f.relay(ctx, stream, out, text, opts)
	return out, nil
}

// relay forwards the primary's events, tracking how much text has been
// chunked so a failure can resume from the first unspoken sentence on the
// fallback engine.
func (f *FallbackSynthesizer) relay(ctx context.Context, stream <-chan Event, out chan<- Event, text string, opts Options) {
	defer close(out)

	sentences := splitSentences(text)
	done := 0

	for ev := range stream {
		if ev.Kind == KindError {
			if ctx.Err() != nil {
				out <- ev
				return
			}
			remaining := joinRemaining(sentences, done)
			if remaining == "" {
				// Failed after the last chunk; nothing left to speak.
				out <- Event{Kind: KindDone}
				return
			}
			next, err := f.recordFailure(ctx, remaining, opts, ev.Err)
			if err != nil {
				out <- Event{Kind: KindError, Err: err}
				return
			}
			for fev := range next {
				out <- fev
			}
			return
		}
		out <- ev
		if ev.Kind == KindChunk {
			done++
		}
	}
	f.recordSuccess()
}

// recordFailure counts a primary failure and, past the threshold, starts
// the fallback over the remaining text.
func (f *FallbackSynthesizer) recordFailure(ctx context.Context, remaining string, opts Options, cause error) (<-chan Event, error) {
	f.mu.Lock()
	f.failures++
	failures := f.failures
	switched := failures >= f.maxFailures
	if switched {
		f.usingFallback = true
	}
	f.mu.Unlock()

	if !switched {
		log.Warn("primary synthesis engine failed",
			"engine", f.primary.Name(), "failures", failures, "max", f.maxFailures, "err", cause)
		return nil, cause
	}

	log.Warn("switching to fallback synthesis engine",
		"primary", f.primary.Name(), "fallback", f.fallback.Name(), "err", cause)
	stream, err := f.fallback.Synthesize(ctx, remaining, opts)
	if err != nil {
		return nil, fmt.Errorf("synth: both engines failed: primary: %v, fallback: %w", cause, err)
	}
	return stream, nil
}

func (f *FallbackSynthesizer) recordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 && !f.usingFallback {
		log.Info("primary synthesis engine recovered", "engine", f.primary.Name(), "after", f.failures)
		f.failures = 0
	}
}

func (f *FallbackSynthesizer) active() Synthesizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}

// joinRemaining rebuilds the unsynthesized tail of the input.
func joinRemaining(sentences []string, done int) string {
	if done >= len(sentences) {
		return ""
	}
	out := sentences[done]
	for _, s := range sentences[done+1:] {
		out += " " + s
	}
	return out
}

var _ Synthesizer = (*FallbackSynthesizer)(nil)
