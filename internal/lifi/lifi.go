// Package lifi drives the lamp-to-phone downlink. The lamp light modulates
// the latest HQ message; phones arriving later still receive it because the
// beacon re-broadcasts on a fixed interval until a newer message replaces it.
package lifi

import (
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// DefaultRebroadcastInterval is how often the latest message is repeated.
const DefaultRebroadcastInterval = 60 * time.Second

// Beacon holds the lamp's current LiFi payload and its rebroadcast schedule.
// Single-owner state: only the node loop touches it.
type Beacon struct {
	transmit func(string)
	interval time.Duration

	latest   string
	lastSent time.Time
	hasMsg   bool
}

// NewBeacon creates a beacon feeding transmit. A zero interval selects the
// default.
func NewBeacon(transmit func(string), interval time.Duration) *Beacon {
	if transmit == nil {
		transmit = func(string) {}
	}
	if interval == 0 {
		interval = DefaultRebroadcastInterval
	}
	return &Beacon{transmit: transmit, interval: interval}
}

// Set replaces the beacon payload and transmits it immediately.
func (b *Beacon) Set(msg string, now time.Time) {
	b.latest = msg
	b.lastSent = now
	b.hasMsg = true
	util.LogInfo("lifi: broadcasting to phones: %q", msg)
	b.transmit(msg)
}

// Tick re-transmits the current payload when the rebroadcast interval has
// elapsed. Call once per loop iteration.
func (b *Beacon) Tick(now time.Time) {
	if !b.hasMsg || now.Sub(b.lastSent) < b.interval {
		return
	}
	b.lastSent = now
	util.LogDebug("lifi: rebroadcast %q", b.latest)
	b.transmit(b.latest)
}

// Latest returns the current payload and whether one is set.
func (b *Beacon) Latest() (string, bool) {
	return b.latest, b.hasMsg
}
