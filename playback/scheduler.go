package playback

import (
	"sync"
	"time"

	"github.com/dgnsrekt/readaloud/timing"
)

// TimelineSource exposes the session's current word timeline to the
// scheduler. done reports whether the timeline is final.
type TimelineSource interface {
	TimelineSnapshot() (words []timing.WordTiming, done bool)
}

// SchedulerHooks are the scheduler's outputs. OnHighlight and OnScroll fire
// under the scheduler's lock, so once Pause or Stop has returned no further
// calls are in flight. OnComplete fires outside the lock, exactly once per
// run, after the final word of a finished timeline.
type SchedulerHooks struct {
	OnHighlight func(index int)
	OnScroll    func(index int)
	OnComplete  func()
}

// SchedulerConfig tunes highlight pacing.
type SchedulerConfig struct {
	// Lead fires each highlight slightly before the word's timestamp so
	// the visual lands with the audio rather than after it.
	Lead time.Duration
	// PollInterval is how often to re-check the timeline when the
	// cursor has caught up with generation.
	PollInterval time.Duration
	// ScrollEvery emits a scroll hint every nth highlight.
	ScrollEvery int
}

// DefaultSchedulerConfig returns the pacing defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Lead:         30 * time.Millisecond,
		PollInterval: 150 * time.Millisecond,
		ScrollEvery:  5,
	}
}

// Scheduler walks a word timeline in real time, firing one highlight per
// word at its estimated moment. It arms exactly one timer at a time: each
// firing dispatches the current word, advances the cursor, and arms the
// next. When the cursor passes the last known word of an unfinished
// timeline it polls until more words arrive or the timeline is marked done.
type Scheduler struct {
	mu     sync.Mutex
	cfg    SchedulerConfig
	source TimelineSource
	hooks  SchedulerHooks

	timer      *time.Timer
	cursor     int
	audioStart time.Time
	running    bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewScheduler creates a stopped scheduler over source.
func NewScheduler(source TimelineSource, hooks SchedulerHooks, cfg SchedulerConfig) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultSchedulerConfig().PollInterval
	}
	if cfg.ScrollEvery <= 0 {
		cfg.ScrollEvery = DefaultSchedulerConfig().ScrollEvery
	}
	return &Scheduler{
		cfg:    cfg,
		source: source,
		hooks:  hooks,
		now:    time.Now,
	}
}

// Start begins dispatching from the given cursor against audioStart as the
// wall-clock moment of timeline position zero.
func (s *Scheduler) Start(audioStart time.Time, cursor int) {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.audioStart = audioStart
	s.cursor = cursor
	s.running = true
	complete := s.scheduleNextLocked()
	s.mu.Unlock()

	if complete {
		s.complete()
	}
}

// Pause halts dispatching, keeping the cursor. After Pause returns, no hook
// calls are in flight.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cancelTimerLocked()
}

// Resume continues from the kept cursor against a re-based audioStart.
func (s *Scheduler) Resume(audioStart time.Time) {
	s.Start(audioStart, s.Cursor())
}

// Stop halts dispatching and resets the cursor to zero.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cursor = 0
	s.cancelTimerLocked()
}

// Cursor returns the index of the next word to highlight.
func (s *Scheduler) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// scheduleNextLocked arms the timer for the word at the cursor. It returns
// true when the timeline is done and fully dispatched, in which case the
// caller must invoke complete() after releasing the lock.
func (s *Scheduler) scheduleNextLocked() (complete bool) {
	if !s.running {
		return false
	}

	words, done := s.source.TimelineSnapshot()
	if s.cursor >= len(words) {
		if done {
			s.running = false
			return true
		}
		// Caught up with generation; poll for more words.
		s.timer = time.AfterFunc(s.cfg.PollInterval, s.fire)
		return false
	}

	delay := words[s.cursor].Start - s.now().Sub(s.audioStart) - s.cfg.Lead
	if delay < 0 {
		delay = 0
	}
	s.timer = time.AfterFunc(delay, s.fire)
	return false
}

// fire dispatches the word at the cursor (if one is due) and re-arms.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	words, _ := s.source.TimelineSnapshot()
	// A poll-interval wakeup may land before the next word is due; in
	// that case just re-arm for the word's real timestamp.
	if s.cursor < len(words) && s.dueLocked(words[s.cursor].Start) {
		index := words[s.cursor].Index
		if s.hooks.OnHighlight != nil {
			s.hooks.OnHighlight(index)
		}
		if s.hooks.OnScroll != nil && s.cursor%s.cfg.ScrollEvery == 0 {
			s.hooks.OnScroll(index)
		}
		s.cursor++
	}

	complete := s.scheduleNextLocked()
	s.mu.Unlock()

	if complete {
		s.complete()
	}
}

// dueLocked reports whether the word starting at start should fire now.
func (s *Scheduler) dueLocked(start time.Duration) bool {
	return s.now().Sub(s.audioStart) >= start-s.cfg.Lead
}

func (s *Scheduler) complete() {
	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete()
	}
}

// cancelTimerLocked stops a pending timer. A fire already running blocks on
// s.mu and then observes running == false.
func (s *Scheduler) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
