package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// feedString pushes every character of s at the given instant and returns
// all completed packets.
func feedString(r *Reassembler, s string, now time.Time) [][2]string {
	var pkts [][2]string
	for i := 0; i < len(s); i++ {
		if header, body, ok := r.Feed(s[i], now); ok {
			pkts = append(pkts, [2]string{header, body})
		}
	}
	return pkts
}

func TestReassembleInit(t *testing.T) {
	r := NewReassembler(0)

	pkts := feedString(r, "000h01000 ", t0)
	require.Len(t, pkts, 1)
	assert.Equal(t, "000h01000", pkts[0][0])
	assert.Empty(t, pkts[0][1])
}

func TestReassembleSOS(t *testing.T) {
	r := NewReassembler(0)

	pkts := feedString(r, "102a000h307 ", t0)
	require.Len(t, pkts, 1)
	assert.Equal(t, "102a000h307", pkts[0][0])
}

func TestReassembleTwoSegmentPacket(t *testing.T) {
	r := NewReassembler(0)

	pkts := feedString(r, "000hFFFF128B2 ", t0)
	assert.Empty(t, pkts, "header announces a message, nothing complete yet")

	pkts = feedString(r, "Hello ", t0)
	require.Len(t, pkts, 1)
	assert.Equal(t, "000hFFFF128B2", pkts[0][0])
	assert.Equal(t, "Hello", pkts[0][1])
}

func TestReassembleMessageKind(t *testing.T) {
	r := NewReassembler(0)

	feedString(r, "304c000h428B205 ", t0)
	pkts := feedString(r, "Hello ", t0)
	require.Len(t, pkts, 1)
	assert.Equal(t, "304c000h428B205", pkts[0][0])
	assert.Equal(t, "Hello", pkts[0][1])
}

func TestDiscardUnknownSegmentLengths(t *testing.T) {
	r := NewReassembler(0)

	assert.Empty(t, feedString(r, "short ", t0))
	assert.Empty(t, feedString(r, "0123456789 ", t0)) // 10 chars, no shape
	// State stayed IDLE: a proper packet still parses.
	assert.Len(t, feedString(r, "000h01000 ", t0), 1)
}

func TestDiscardLengthTypeMismatch(t *testing.T) {
	r := NewReassembler(0)

	// 9 chars but not an INIT type byte.
	assert.Empty(t, feedString(r, "000h01001 ", t0))
	// 13 chars with a MESSAGE type byte.
	assert.Empty(t, feedString(r, "000hFFFF428B2 ", t0))
	// Neither left a pending header behind.
	assert.Empty(t, feedString(r, "stray ", t0))
}

// TestHeaderOnlyInterruptsAwait: a header-only packet during AWAIT_MESSAGE
// means the expected segment was lost; the pending header is dropped and the
// new packet stands on its own.
func TestHeaderOnlyInterruptsAwait(t *testing.T) {
	r := NewReassembler(0)

	feedString(r, "000hFFFF128B2 ", t0)
	pkts := feedString(r, "102a000h307 ", t0)
	require.Len(t, pkts, 1)
	assert.Equal(t, "102a000h307", pkts[0][0])

	// The dropped header is gone: this segment is evaluated from IDLE.
	assert.Empty(t, feedString(r, "Hello ", t0))
}

// TestSegmentTimeout: carrier loss mid-segment abandons the partial buffer
// after 2 s of silence.
func TestSegmentTimeout(t *testing.T) {
	r := NewReassembler(0)

	feedString(r, "000h", t0)
	// Carrier returns late; the stale prefix must not survive.
	pkts := feedString(r, "102a000h307 ", t0.Add(3*time.Second))
	require.Len(t, pkts, 1)
	assert.Equal(t, "102a000h307", pkts[0][0])
}

// TestPendingHeaderTimeout: a header whose message never arrives is dropped
// after the message timeout, and a later identical header starts fresh.
func TestPendingHeaderTimeout(t *testing.T) {
	r := NewReassembler(3 * time.Second)

	feedString(r, "000hFFFF128B2 ", t0)
	r.Expire(t0.Add(4 * time.Second))

	// Not treated as the pending packet's message: it is a fresh header.
	pkts := feedString(r, "000hFFFF128B2 ", t0.Add(4*time.Second))
	assert.Empty(t, pkts)

	pkts = feedString(r, "Hello ", t0.Add(5*time.Second))
	require.Len(t, pkts, 1)
	assert.Equal(t, "Hello", pkts[0][1])
}

func TestEmptySegmentIgnored(t *testing.T) {
	r := NewReassembler(0)
	assert.Empty(t, feedString(r, "   ", t0))
}
