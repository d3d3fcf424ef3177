// Package scheduler issues cancellable one-shot timers on behalf of the match cycle.
// All timers run against an injectable clock so tests can drive multi-hour
// durations with a mock instead of waiting on wall time.
package scheduler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// UnknownRemaining is returned by Remaining for timer IDs that are unknown,
// already fired, or cancelled.
const UnknownRemaining = time.Duration(-1)

type TimerID uint64

type entry struct {
	kind     string
	timer    *clock.Timer
	deadline time.Time
}

type Scheduler struct {
	clock clock.Clock

	mu     sync.Mutex
	nextID TimerID
	timers map[TimerID]*entry
}

// New creates a scheduler. Passing nil uses the system clock.
func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{
		clock:  c,
		timers: map[TimerID]*entry{},
	}
}

// Schedule runs fn once after the given duration. The kind string is only used
// for logging and metrics. A panicking callback is caught and logged; it never
// takes down the other timers or the process clock.
func (s *Scheduler) Schedule(kind string, d time.Duration, fn func()) TimerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	s.timers[id] = &entry{
		kind:     kind,
		deadline: s.clock.Now().Add(d),
	}
	s.timers[id].timer = s.clock.AfterFunc(d, func() {
		s.fire(id, kind, fn)
	})
	return id
}

func (s *Scheduler) fire(id TimerID, kind string, fn func()) {
	s.mu.Lock()
	_, live := s.timers[id]
	delete(s.timers, id)
	s.mu.Unlock()
	if !live {
		// Cancelled between the clock firing and this callback running.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("kind", kind).Msgf("timer callback panicked: %v", r)
		}
	}()
	fn()
}

// Cancel stops the timer with the given ID. Cancelling an unknown, fired, or
// already-cancelled timer is a no-op.
func (s *Scheduler) Cancel(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return
	}
	e.timer.Stop()
	delete(s.timers, id)
}

// CancelAll stops every live timer. Calling it repeatedly is harmless.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}

// Remaining reports the time until the timer fires, or UnknownRemaining if the
// scheduler is not tracking the given ID.
func (s *Scheduler) Remaining(id TimerID) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return UnknownRemaining
	}
	remaining := e.deadline.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Len reports the number of live timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
