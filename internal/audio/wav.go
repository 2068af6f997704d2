package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// wavHeader is a canonical 44-byte RIFF/WAVE header for PCM data.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WriteWAV writes mono 16-bit PCM as a WAV file to w.
func WriteWAV(w io.Writer, pcm []byte, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(pcm))
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + 36,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * channels * bitsPerSample / 8,
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("audio: write wav header: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("audio: write wav data: %w", err)
	}
	return nil
}

// CaptureSink tees enqueued PCM into a buffer and writes it out as a single
// WAV file on Close. Wrap a real sink to export what was played, or use a
// MockSink inner for silent export-only runs.
type CaptureSink struct {
	inner Sink
	path  string

	mu         sync.Mutex
	pcm        []byte
	sampleRate int
}

// NewCaptureSink wraps inner, writing the captured audio to path on Close.
func NewCaptureSink(inner Sink, path string) *CaptureSink {
	return &CaptureSink{inner: inner, path: path}
}

// EnqueuePCM implements Sink.
func (c *CaptureSink) EnqueuePCM(samples []byte, sampleRate int) error {
	c.mu.Lock()
	c.pcm = append(c.pcm, samples...)
	c.sampleRate = sampleRate
	c.mu.Unlock()
	return c.inner.EnqueuePCM(samples, sampleRate)
}

// Pause implements Sink.
func (c *CaptureSink) Pause() { c.inner.Pause() }

// Resume implements Sink.
func (c *CaptureSink) Resume() { c.inner.Resume() }

// Stop implements Sink. The capture buffer is kept; a stopped session still
// exports what was generated before the stop.
func (c *CaptureSink) Stop() { c.inner.Stop() }

// Close implements Sink, flushing the capture to disk.
func (c *CaptureSink) Close() error {
	innerErr := c.inner.Close()

	c.mu.Lock()
	pcm, rate := c.pcm, c.sampleRate
	c.mu.Unlock()

	if len(pcm) == 0 {
		return innerErr
	}
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("audio: create wav file: %w", err)
	}
	defer f.Close()
	if err := WriteWAV(f, pcm, rate); err != nil {
		return err
	}
	return innerErr
}

var _ Sink = (*CaptureSink)(nil)
