package audio

import "sync"

// MockSink records sink calls for tests and headless runs.
type MockSink struct {
	mu         sync.Mutex
	enqueued   [][]byte
	sampleRate int
	pauses     int
	resumes    int
	stops      int
	closed     bool
}

// NewMockSink returns an empty recorder.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// EnqueuePCM implements Sink.
func (m *MockSink) EnqueuePCM(samples []byte, sampleRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSinkClosed
	}
	buf := make([]byte, len(samples))
	copy(buf, samples)
	m.enqueued = append(m.enqueued, buf)
	m.sampleRate = sampleRate
	return nil
}

// Pause implements Sink.
func (m *MockSink) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
}

// Resume implements Sink.
func (m *MockSink) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
}

// Stop implements Sink.
func (m *MockSink) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.enqueued = nil
}

// Close implements Sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ChunkCount returns how many chunks have been enqueued since the last Stop.
func (m *MockSink) ChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enqueued)
}

// TotalBytes returns the enqueued byte count since the last Stop.
func (m *MockSink) TotalBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.enqueued {
		n += len(c)
	}
	return n
}

// Counts returns the pause, resume, and stop call counts.
func (m *MockSink) Counts() (pauses, resumes, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses, m.resumes, m.stops
}

// SampleRate returns the rate of the most recent chunk.
func (m *MockSink) SampleRate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleRate
}

var _ Sink = (*MockSink)(nil)
