package mesh

import (
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// RetransmitQueueSize is the number of concurrent pending-redundancy slots.
const RetransmitQueueSize = 3

type retransmitEntry struct {
	header    string
	body      string
	firstSent time.Time
	sentCount int
	active    bool
}

// RetransmitQueue holds recently sent packets for timed re-emission. The mesh
// has no acknowledgements; each originated or forwarded packet is instead
// sent up to maxSends times in all (the first transmission included) inside
// a bounded redundancy window.
type RetransmitQueue struct {
	slots    [RetransmitQueueSize]retransmitEntry
	maxSends int
	interval time.Duration
	window   time.Duration
}

// NewRetransmitQueue creates a queue that sends each entry at most maxSends
// times (the first transmission included), spaced by interval, and retires
// entries once window has elapsed since their first transmission.
func NewRetransmitQueue(maxSends int, interval, window time.Duration) *RetransmitQueue {
	return &RetransmitQueue{
		maxSends: maxSends,
		interval: interval,
		window:   window,
	}
}

// Add records an already-transmitted packet for later redundancy. Returns
// false when every slot is active; the original first transmission stands,
// only the retries are lost.
func (q *RetransmitQueue) Add(header, body string, now time.Time) bool {
	for i := range q.slots {
		if q.slots[i].active {
			continue
		}
		q.slots[i] = retransmitEntry{
			header:    header,
			body:      body,
			firstSent: now,
			sentCount: 1,
			active:    true,
		}
		return true
	}
	util.LogWarning("retransmit queue full, no redundancy for header %s", header)
	return false
}

// Tick walks the active slots: entries past the redundancy window are
// retired, and entries due for their next retransmission are re-emitted via
// emit. emit must be the raw transmit path so a retry is never re-enqueued.
func (q *RetransmitQueue) Tick(now time.Time, emit func(header, body string)) {
	for i := range q.slots {
		e := &q.slots[i]
		if !e.active {
			continue
		}

		elapsed := now.Sub(e.firstSent)
		if elapsed > q.window {
			e.active = false
			util.LogDebug("retransmit complete for header %s", e.header)
			continue
		}

		if e.sentCount < q.maxSends && elapsed >= time.Duration(e.sentCount)*q.interval {
			util.LogDebug("retransmit #%d for header %s", e.sentCount+1, e.header)
			emit(e.header, e.body)
			e.sentCount++
		}
	}
}

// Active returns the number of slots currently holding a pending entry.
func (q *RetransmitQueue) Active() int {
	n := 0
	for i := range q.slots {
		if q.slots[i].active {
			n++
		}
	}
	return n
}
