// Package synth converts text into streamed speech audio. A synthesizer
// splits its input into sentence-sized pieces and emits each piece as a
// chunk of raw PCM as soon as it is ready, so playback can begin before the
// whole document has been generated.
package synth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgnsrekt/readaloud/timing"
)

// Sentinel errors returned by synthesizers.
var (
	// ErrEngineUnavailable means the synthesizer's backing engine cannot
	// run on this system (missing binary, missing model).
	ErrEngineUnavailable = errors.New("synth: engine unavailable")
	// ErrEmptyText means there was nothing to synthesize.
	ErrEmptyText = errors.New("synth: empty text")
)

// Options selects the voice and rate for one synthesis run.
type Options struct {
	Voice string
	Speed float64
}

// Chunk is one synthesized piece of the input text: mono 16-bit
// little-endian PCM plus the text it was generated from. Phonemes holds the
// engine's phonetic transcription of Text when the engine exposes one, with
// groups separated by spaces; engines without phoneme output leave it empty.
type Chunk struct {
	Text       string
	Phonemes   string
	Samples    []byte
	SampleRate int
}

// SampleCount returns the number of audio samples in the chunk.
func (c *Chunk) SampleCount() int {
	return len(c.Samples) / 2
}

// Duration returns the chunk's play time.
func (c *Chunk) Duration() time.Duration {
	return timing.SamplesToDuration(c.SampleCount(), c.SampleRate)
}

// EventKind discriminates synthesis stream events.
type EventKind int

const (
	// KindChunk carries a finished audio chunk.
	KindChunk EventKind = iota
	// KindProgress reports generation progress as a percentage.
	KindProgress
	// KindDone marks the end of a successful stream.
	KindDone
	// KindError marks the end of a failed stream.
	KindError
)

// Event is one message on a synthesis stream. Exactly one of the payload
// fields is meaningful, selected by Kind. A stream ends with a single
// KindDone or KindError event, after which the channel is closed.
type Event struct {
	Kind     EventKind
	Chunk    *Chunk
	Progress int
	Err      error
}

// Synthesizer streams speech audio for text.
type Synthesizer interface {
	// Synthesize starts generating audio for text and returns the event
	// stream. Generation runs until the text is exhausted, an error
	// occurs, or ctx ends.
	Synthesize(ctx context.Context, text string, opts Options) (<-chan Event, error)
	// Name identifies the engine, also used in cache keys.
	Name() string
	// Available reports whether the engine can synthesize on this system.
	Available() bool
	// SetSpeed changes the rate used by subsequent chunks, including
	// those of an already-running stream where the engine supports it.
	SetSpeed(speed float64)
}

// splitSentences groups the input's word tokens into sentence strings using
// the same tokenization the timing estimator applies, so a chunk's text
// round-trips through timing.TokenizeText without drift.
func splitSentences(text string) []string {
	words := timing.TokenizeText(text)
	if len(words) == 0 {
		return nil
	}

	var sentences []string
	start := 0
	for i, w := range words {
		if timing.IsSentenceEnd(w) {
			sentences = append(sentences, strings.Join(words[start:i+1], " "))
			start = i + 1
		}
	}
	if start < len(words) {
		sentences = append(sentences, strings.Join(words[start:], " "))
	}
	return sentences
}
