// Package transport drives playback with a look-ahead polling loop. A coarse
// wall-clock timer wakes the scheduler; every hit it emits is stamped with an
// absolute time on the audio clock, so timer jitter never reaches the audio.
package transport

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/stepdrum-go/internal/pattern"
)

// Clock is the audio clock in seconds.
type Clock interface {
	Now() float64
}

// Sink receives scheduled hits. Trigger must not block.
type Sink interface {
	Trigger(track int, at float64, volume float64)
}

// Source yields the latest committed pattern state.
type Source interface {
	Snapshot() *pattern.Snapshot
}

const (
	DefaultStartOffset  = 0.05
	DefaultLookAhead    = 0.1
	DefaultPollInterval = 25 * time.Millisecond
)

type Options struct {
	// StartOffset delays the first step past the clock time at Start.
	StartOffset float64
	// LookAhead is the window, in seconds, scheduled on every poll.
	LookAhead    float64
	PollInterval time.Duration
	After        AfterFunc
	// OnStep is told the index of each emitted step at about the moment it
	// sounds. It runs on the timer goroutine.
	OnStep func(step int)
	Logger *logrus.Entry
}

func DefaultOptions() Options {
	return Options{
		StartOffset:  DefaultStartOffset,
		LookAhead:    DefaultLookAhead,
		PollInterval: DefaultPollInterval,
		After:        SystemAfter,
	}
}

type Scheduler struct {
	clock Clock
	sink  Sink
	src   Source
	opts  Options
	log   *logrus.Entry

	mu      sync.Mutex
	running bool
	gen     uint64
	step    int
	next    float64
	timer   Timer
}

func New(clock Clock, sink Sink, src Source, opts Options) *Scheduler {
	def := DefaultOptions()
	if opts.StartOffset < 0 {
		opts.StartOffset = 0
	}
	if opts.LookAhead <= 0 {
		opts.LookAhead = def.LookAhead
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.After == nil {
		opts.After = def.After
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		clock: clock,
		sink:  sink,
		src:   src,
		opts:  opts,
		log:   log.WithField("component", "transport"),
	}
}

// Start rewinds to step 0, places the first step StartOffset after the
// current clock time and runs the first poll. It is a no-op while running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.gen++
	s.step = 0
	s.next = s.clock.Now() + s.opts.StartOffset
	s.log.WithFields(logrus.Fields{"at": s.next, "generation": s.gen}).Debug("transport started")
	s.pollLocked()
	s.armLocked(s.gen)
}

// Stop cancels future polling. Hits already handed to the sink still sound.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.log.WithField("step", s.step).Debug("transport stopped")
}

// Poll runs one scheduling pass outside the timer loop. It does nothing
// while stopped.
func (s *Scheduler) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.pollLocked()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Step returns the index of the next step to be scheduled.
func (s *Scheduler) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// NextEventTime returns the audio clock time of the next step to be scheduled.
func (s *Scheduler) NextEventTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A timer that fired after Stop, or after a restart, belongs to an old run.
	if !s.running || gen != s.gen {
		return
	}
	s.pollLocked()
	s.armLocked(gen)
}

func (s *Scheduler) armLocked(gen uint64) {
	s.timer = s.opts.After(s.opts.PollInterval, func() { s.tick(gen) })
}

func (s *Scheduler) pollLocked() {
	now := s.clock.Now()
	if s.next < now {
		s.log.WithFields(logrus.Fields{"behind": now - s.next, "step": s.step}).Warn("scheduler starved, resyncing to clock")
		s.next = now
	}
	horizon := now + s.opts.LookAhead
	for s.next < horizon {
		snap := s.src.Snapshot()
		s.emitLocked(snap, now)
		s.next += snap.StepDuration()
		s.step = (s.step + 1) % pattern.NumSteps
	}
}

func (s *Scheduler) emitLocked(snap *pattern.Snapshot, now float64) {
	step, at := s.step, s.next
	for track := 0; track < pattern.NumTracks; track++ {
		if !snap.Grid[track][step] || snap.Mutes[track] {
			continue
		}
		s.sink.Trigger(track, at, snap.Volumes[track])
	}
	if s.opts.OnStep == nil {
		return
	}
	gen, notify := s.gen, s.opts.OnStep
	Defer(s.opts.After, now, at, func() {
		s.mu.Lock()
		current := s.running && s.gen == gen
		s.mu.Unlock()
		if current {
			notify(step)
		}
	})
}
