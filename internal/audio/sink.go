// Package audio plays streamed PCM on the system's audio device and writes
// WAV captures. All audio in this program is mono 16-bit little-endian.
package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrSinkClosed is returned when enqueueing on a closed sink.
var ErrSinkClosed = errors.New("audio: sink is closed")

// Sink accepts PCM chunks for playback as they are synthesized.
type Sink interface {
	// EnqueuePCM appends a chunk of mono 16-bit little-endian samples to
	// the playback stream. The first chunk fixes the stream's rate;
	// later chunks at a different rate are rejected.
	EnqueuePCM(samples []byte, sampleRate int) error
	// Pause suspends the audio device without losing position.
	Pause()
	// Resume continues after Pause.
	Resume()
	// Stop discards any unplayed audio and resets for the next session.
	Stop()
	// Close releases the audio device.
	Close() error
}

// pcmStream is the io.Reader handed to the device player. Reads block until
// data arrives, the stream drains after closing, or the stream is reset.
type pcmStream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newPCMStream() *pcmStream {
	s := &pcmStream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *pcmStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *pcmStream) write(p []byte) {
	s.mu.Lock()
	s.buf = append(s.buf, p...)
	s.mu.Unlock()
	s.cond.Signal()
}

// reset discards buffered audio without closing the stream.
func (s *pcmStream) reset() {
	s.mu.Lock()
	s.buf = nil
	s.mu.Unlock()
}

func (s *pcmStream) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// OtoSink plays PCM through the oto audio library. The device context is
// created lazily on the first chunk because the sample rate is not known
// until synthesis starts.
type OtoSink struct {
	mu         sync.Mutex
	ctx        *oto.Context
	player     *oto.Player
	stream     *pcmStream
	sampleRate int
	closed     bool
}

// NewOtoSink returns a sink with no device open yet.
func NewOtoSink() *OtoSink {
	return &OtoSink{}
}

// EnqueuePCM implements Sink.
func (o *OtoSink) EnqueuePCM(samples []byte, sampleRate int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrSinkClosed
	}
	if len(samples) == 0 {
		return nil
	}
	if o.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			return fmt.Errorf("audio: open device: %w", err)
		}
		<-ready
		o.ctx = ctx
		o.sampleRate = sampleRate
	}
	if sampleRate != o.sampleRate {
		return fmt.Errorf("audio: sample rate changed mid-stream: %d != %d", sampleRate, o.sampleRate)
	}

	if o.stream == nil {
		o.stream = newPCMStream()
		o.player = o.ctx.NewPlayer(o.stream)
		o.player.Play()
	}
	o.stream.write(samples)
	return nil
}

// Pause implements Sink.
func (o *OtoSink) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Pause()
	}
}

// Resume implements Sink.
func (o *OtoSink) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Play()
	}
}

// Stop implements Sink. The device context stays open for the next session.
func (o *OtoSink) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownPlayerLocked()
}

// Close implements Sink.
func (o *OtoSink) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownPlayerLocked()
	o.closed = true
	// oto v3 contexts have no Close; dropping the reference is the
	// supported teardown.
	o.ctx = nil
	return nil
}

func (o *OtoSink) teardownPlayerLocked() {
	if o.stream != nil {
		o.stream.reset()
		o.stream.close()
		o.stream = nil
	}
	if o.player != nil {
		o.player.Pause()
		o.player.Close()
		o.player = nil
	}
}

// Drain blocks until queued audio has had wall-clock time to play out, or
// the timeout passes. Used at natural end of session so the tail of the
// last sentence is not clipped.
func (o *OtoSink) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		o.mu.Lock()
		stream := o.stream
		o.mu.Unlock()
		if stream == nil {
			return
		}
		stream.mu.Lock()
		empty := len(stream.buf) == 0
		stream.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

var _ Sink = (*OtoSink)(nil)
