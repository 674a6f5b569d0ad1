// Package playback schedules decoded response audio onto a gapless output
// timeline.
package playback

import (
	"sync"
	"time"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
)

// Clock reports the current position of the output timeline
type Clock interface {
	Now() time.Duration
}

// Sink plays buf starting at the given timeline position
type Sink interface {
	Schedule(at time.Duration, buf *audio.Buffer)
}

// Scheduler keeps the next start position so consecutive buffers play
// back-to-back. nextStart only moves forward, except on Interrupt.
type Scheduler struct {
	mu        sync.Mutex
	clock     Clock
	sink      Sink
	nextStart time.Duration
}

// NewScheduler creates a scheduler whose first buffer starts at the clock's now
func NewScheduler(clock Clock, sink Sink) *Scheduler {
	return &Scheduler{
		clock:     clock,
		sink:      sink,
		nextStart: clock.Now(),
	}
}

// Enqueue schedules buf right after the previously scheduled buffer, or now
// if that point is already in the past. It returns the start position.
func (s *Scheduler) Enqueue(buf *audio.Buffer) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := s.clock.Now(); now > s.nextStart {
		s.nextStart = now
	}
	start := s.nextStart
	if buf == nil || len(buf.Samples) == 0 {
		return start
	}

	s.sink.Schedule(start, buf)
	s.nextStart += buf.Duration()
	return start
}

// Interrupt drops the schedule so the next buffer starts at the clock's now.
// Audio already handed to the sink still plays out.
func (s *Scheduler) Interrupt() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextStart = s.clock.Now()
	return s.nextStart
}

// NextStart returns where the next buffer would be placed
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}
