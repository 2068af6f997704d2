package synth

import (
	"bytes"
	"context"
	"encoding/gob"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readaloud/internal/cache"
)

// CachedSynthesizer wraps an engine with the audio cache. A full-document
// hit replays the stored chunks without touching the engine; a miss tees
// the engine's chunks into the cache once the stream finishes cleanly.
// Failed or cancelled streams are never cached.
type CachedSynthesizer struct {
	inner Synthesizer
	store *cache.Manager

	mu    sync.Mutex
	speed float64
}

// NewCachedSynthesizer wraps inner with store.
func NewCachedSynthesizer(inner Synthesizer, store *cache.Manager) *CachedSynthesizer {
	return &CachedSynthesizer{inner: inner, store: store, speed: 1.0}
}

// Name implements Synthesizer.
func (c *CachedSynthesizer) Name() string { return c.inner.Name() }

// Available implements Synthesizer.
func (c *CachedSynthesizer) Available() bool { return c.inner.Available() }

// SetSpeed implements Synthesizer. Speed is part of the cache key, so a
// different rate never replays mistimed audio.
func (c *CachedSynthesizer) SetSpeed(speed float64) {
	c.mu.Lock()
	if speed > 0 {
		c.speed = speed
	}
	c.mu.Unlock()
	c.inner.SetSpeed(speed)
}

// Synthesize implements Synthesizer.
func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string, opts Options) (<-chan Event, error) {
	speed := opts.Speed
	if speed <= 0 {
		c.mu.Lock()
		speed = c.speed
		c.mu.Unlock()
	}
	key := cache.Key(c.inner.Name(), opts.Voice, speed, text)

	if data, ok := c.store.Get(key); ok {
		if chunks, err := decodeChunks(data); err == nil {
			log.Debug("audio cache hit", "engine", c.inner.Name(), "chunks", len(chunks))
			return replay(ctx, chunks), nil
		}
		// Corrupt entry; fall through to the engine.
	}

	stream, err := c.inner.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		var chunks []*Chunk
		for ev := range stream {
			if ev.Kind == KindChunk {
				chunks = append(chunks, ev.Chunk)
			}
			if ev.Kind == KindDone {
				if data, err := encodeChunks(chunks); err == nil {
					c.store.Put(key, data)
				}
			}
			out <- ev
		}
	}()
	return out, nil
}

// replay emits stored chunks immediately, ending with KindDone.
func replay(ctx context.Context, chunks []*Chunk) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		for i, chunk := range chunks {
			select {
			case events <- Event{Kind: KindChunk, Chunk: chunk}:
			case <-ctx.Done():
				events <- Event{Kind: KindError, Err: ctx.Err()}
				return
			}
			events <- Event{Kind: KindProgress, Progress: (i + 1) * 100 / len(chunks)}
		}
		events <- Event{Kind: KindDone}
	}()
	return events
}

func encodeChunks(chunks []*Chunk) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(chunks); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeChunks(data []byte) ([]*Chunk, error) {
	var chunks []*Chunk
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

var _ Synthesizer = (*CachedSynthesizer)(nil)
