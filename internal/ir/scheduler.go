package ir

import (
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// Default transmit timings. The inter-character gap matches the NEC decode
// budget of the receiver modules; the direction gap keeps adjacent lamps'
// receivers from seeing two emitters as one garbled stream.
const (
	DefaultCharGap      = 100 * time.Millisecond
	DefaultSegmentGap   = 50 * time.Millisecond
	DefaultDirectionGap = 100 * time.Millisecond
)

// Scheduler emits packets on the four directional emitters in clockwise
// order FRONT→RIGHT→BACK→LEFT. The shared receiver is stopped for the whole
// burst — the carrier cannot be used in both directions at once — so Emit
// deliberately blocks the caller's loop for the burst duration.
type Scheduler struct {
	drv Driver

	charGap      time.Duration
	segmentGap   time.Duration
	directionGap time.Duration

	sleep func(time.Duration)
}

// NewScheduler wraps drv with the default timings.
func NewScheduler(drv Driver) *Scheduler {
	return &Scheduler{
		drv:          drv,
		charGap:      DefaultCharGap,
		segmentGap:   DefaultSegmentGap,
		directionGap: DefaultDirectionGap,
		sleep:        time.Sleep,
	}
}

// SetGaps overrides the transmit timings. A zero keeps the current value.
func (s *Scheduler) SetGaps(charGap, segmentGap, directionGap time.Duration) {
	if charGap != 0 {
		s.charGap = charGap
	}
	if segmentGap != 0 {
		s.segmentGap = segmentGap
	}
	if directionGap != 0 {
		s.directionGap = directionGap
	}
}

// SetSleep replaces the blocking sleep, letting tests and the simulator run
// bursts instantly.
func (s *Scheduler) SetSleep(fn func(time.Duration)) {
	s.sleep = fn
}

// Emit sends the header (and the message, when present) on all four
// directions sequentially. Each segment goes out character by character
// followed by a single space terminator.
func (s *Scheduler) Emit(header, body string) {
	s.drv.StopRX()
	defer s.drv.StartRX()

	for dir := DirFront; dir < NumDirections; dir++ {
		s.sendSegment(dir, header)
		if body != "" {
			s.sleep(s.segmentGap)
			s.sendSegment(dir, body)
		}
		if dir < NumDirections-1 {
			s.sleep(s.directionGap)
		}
	}
}

// sendSegment emits one segment plus its space terminator on dir.
func (s *Scheduler) sendSegment(dir Direction, seg string) {
	for i := 0; i < len(seg); i++ {
		if err := s.drv.Send(dir, seg[i]); err != nil {
			util.LogError("ir tx failed on %s: %v", dir, err)
			return
		}
		s.sleep(s.charGap)
	}
	if err := s.drv.Send(dir, ' '); err != nil {
		util.LogError("ir tx failed on %s: %v", dir, err)
	}
}
