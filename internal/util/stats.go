package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide mesh traffic counter.
var Stats = &stats{}

type stats struct {
	PacketsRX  atomic.Int64 // complete packets reassembled from the carrier
	PacketsTX  atomic.Int64 // four-direction bursts emitted
	Forwarded  atomic.Int64 // packets re-emitted into the mesh
	Duplicates atomic.Int64 // packets dropped by the dedup cache
	Suppressed atomic.Int64 // packets dropped by the gradient check
	Corrupted  atomic.Int64 // packets dropped on hash mismatch or framing
}

func (s *stats) AddRX()         { s.PacketsRX.Add(1) }
func (s *stats) AddTX()         { s.PacketsTX.Add(1) }
func (s *stats) AddForwarded()  { s.Forwarded.Add(1) }
func (s *stats) AddDuplicate()  { s.Duplicates.Add(1) }
func (s *stats) AddSuppressed() { s.Suppressed.Add(1) }
func (s *stats) AddCorrupted()  { s.Corrupted.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs mesh statistics every
// 30 seconds while there is traffic. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		var prevRX, prevTX int64
		for {
			select {
			case <-ticker.C:
				rx := Stats.PacketsRX.Load()
				tx := Stats.PacketsTX.Load()
				if rx != prevRX || tx != prevTX {
					pterm.DefaultLogger.Info(formatStats())
				}
				prevRX = rx
				prevTX = tx

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats returns a one-line summary of the cumulative counters.
func formatStats() string {
	return fmt.Sprintf("RX: %d | TX: %d | Fwd: %d | Dup: %d | Grad: %d | Bad: %d",
		Stats.PacketsRX.Load(),
		Stats.PacketsTX.Load(),
		Stats.Forwarded.Load(),
		Stats.Duplicates.Load(),
		Stats.Suppressed.Load(),
		Stats.Corrupted.Load(),
	)
}
