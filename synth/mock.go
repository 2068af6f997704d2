package synth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/readaloud/timing"
)

const (
	mockSampleRate     = 22050
	mockWordsPerMinute = 160.0
)

// MockSynthesizer generates silent PCM with deterministic durations derived
// from a fixed speaking rate. It exists for tests and for running the player
// on systems with no speech engine installed; highlight timing behaves
// exactly as it would with real audio.
type MockSynthesizer struct {
	mu         sync.Mutex
	speed      float64
	chunkDelay time.Duration
	failAfter  int // fail on the nth chunk, 0 = never
}

// NewMockSynthesizer creates a mock engine at normal speed.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		speed:      1.0,
		chunkDelay: 10 * time.Millisecond,
	}
}

// SetChunkDelay sets the simulated generation time per chunk. Zero disables
// the delay entirely, useful in tests.
func (m *MockSynthesizer) SetChunkDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkDelay = d
}

// SetFailure makes the stream emit KindError in place of the nth chunk
// (1-based). Zero clears the injected failure.
func (m *MockSynthesizer) SetFailure(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// Name implements Synthesizer.
func (m *MockSynthesizer) Name() string { return "mock" }

// Available implements Synthesizer. The mock always works.
func (m *MockSynthesizer) Available() bool { return true }

// SetSpeed implements Synthesizer.
func (m *MockSynthesizer) SetSpeed(speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if speed > 0 {
		m.speed = speed
	}
}

// Synthesize implements Synthesizer. Each sentence becomes one chunk of
// silence whose duration is the sentence's word count at the configured
// speaking rate, with a synthetic phoneme transcription so the full
// phoneme-weighted timing path is exercised.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string, opts Options) (<-chan Event, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, ErrEmptyText
	}
	if opts.Speed > 0 {
		m.SetSpeed(opts.Speed)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for i, sentence := range sentences {
			m.mu.Lock()
			delay := m.chunkDelay
			speed := m.speed
			fail := m.failAfter > 0 && i+1 >= m.failAfter
			m.mu.Unlock()

			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					events <- Event{Kind: KindError, Err: ctx.Err()}
					return
				}
			}
			if fail {
				events <- Event{Kind: KindError, Err: fmt.Errorf("mock: injected failure at chunk %d", i+1)}
				return
			}

			chunk := m.buildChunk(sentence, speed)
			select {
			case events <- Event{Kind: KindChunk, Chunk: chunk}:
			case <-ctx.Done():
				events <- Event{Kind: KindError, Err: ctx.Err()}
				return
			}
			events <- Event{Kind: KindProgress, Progress: (i + 1) * 100 / len(sentences)}
		}
		events <- Event{Kind: KindDone}
	}()
	return events, nil
}

// buildChunk produces silence sized to the sentence's word count and a fake
// per-word phoneme transcription matching the letter-based estimate.
func (m *MockSynthesizer) buildChunk(sentence string, speed float64) *Chunk {
	words := timing.TokenizeText(sentence)

	secondsPerWord := 60.0 / (mockWordsPerMinute * speed)
	samples := int(float64(len(words)) * secondsPerWord * mockSampleRate)
	if samples < 1 {
		samples = 1
	}

	groups := make([]string, len(words))
	for i, w := range words {
		groups[i] = "ˈ" + strings.Repeat("ə", timing.EstimatePhonemeCount(w))
	}

	return &Chunk{
		Text:       sentence,
		Phonemes:   strings.Join(groups, " "),
		Samples:    make([]byte, samples*2),
		SampleRate: mockSampleRate,
	}
}

var _ Synthesizer = (*MockSynthesizer)(nil)
