package ir

import (
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/mesh"
	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// Default reassembler timings. The segment timeout covers carrier loss
// mid-segment; the message timeout bounds the wait for a second segment
// after a header that announces one.
const (
	DefaultSegmentTimeout = 2 * time.Second
	DefaultMessageTimeout = 3 * time.Second
)

// MaxSegmentLen bounds the character accumulator. Messages are small; when
// a run grows past this bound the buffered characters are dropped and
// accumulation restarts with the next character.
const MaxSegmentLen = 128

// Reassembler turns the character-oriented IR stream back into packets.
// Level one accumulates characters into space-terminated segments; level two
// pairs a header segment with its message segment for the kinds that carry
// one. States are IDLE and AWAIT_MESSAGE; there is no terminal state.
type Reassembler struct {
	buf      []byte
	lastChar time.Time

	awaiting   bool
	pending    string
	headerTime time.Time

	segTimeout time.Duration
	msgTimeout time.Duration
}

// NewReassembler creates a reassembler with the given pending-message
// timeout. Zero selects the defaults.
func NewReassembler(msgTimeout time.Duration) *Reassembler {
	if msgTimeout == 0 {
		msgTimeout = DefaultMessageTimeout
	}
	return &Reassembler{
		segTimeout: DefaultSegmentTimeout,
		msgTimeout: msgTimeout,
	}
}

// Feed consumes one received character. When the character completes a
// packet, ok is true and header/body carry it (body empty for the
// header-only kinds).
func (r *Reassembler) Feed(b byte, now time.Time) (header, body string, ok bool) {
	r.Expire(now)

	if b == ' ' {
		seg := string(r.buf)
		r.buf = r.buf[:0]
		if seg == "" {
			return "", "", false
		}
		return r.segment(seg, now)
	}

	if len(r.buf) >= MaxSegmentLen {
		util.LogWarning("rx segment overflow, clearing %d buffered chars", len(r.buf))
		r.buf = r.buf[:0]
	}
	r.buf = append(r.buf, b)
	r.lastChar = now
	return "", "", false
}

// Expire abandons partial state whose timeout has lapsed: a half-received
// segment after carrier loss, or a pending header whose message never came.
// Call once per loop tick even when no characters arrived.
func (r *Reassembler) Expire(now time.Time) {
	if len(r.buf) > 0 && now.Sub(r.lastChar) > r.segTimeout {
		util.LogDebug("rx segment timeout, clearing %d buffered chars", len(r.buf))
		r.buf = r.buf[:0]
	}
	if r.awaiting && now.Sub(r.headerTime) > r.msgTimeout {
		util.LogDebug("rx message timeout, dropping pending header %q", r.pending)
		r.awaiting = false
		r.pending = ""
	}
}

// segment runs the packet-level state machine on one complete segment.
func (r *Reassembler) segment(seg string, now time.Time) (string, string, bool) {
	// Header-only kinds complete immediately, even while a message was
	// expected: the expected segment was lost on the carrier.
	if isHeaderOnly(seg) {
		if r.awaiting {
			util.LogWarning("rx segment lost, dropping pending header %q", r.pending)
			r.awaiting = false
			r.pending = ""
		}
		return seg, "", true
	}

	if r.awaiting {
		header := r.pending
		r.awaiting = false
		r.pending = ""
		return header, seg, true
	}

	switch len(seg) {
	case mesh.HeaderLenStandard:
		if k := mesh.Kind(seg[8]); k != mesh.KindBroadcast && k != mesh.KindTargeted {
			util.LogDebug("rx discard 13-char segment with type %q", seg[8])
			return "", "", false
		}
	case mesh.HeaderLenMessage:
		if mesh.Kind(seg[8]) != mesh.KindMessage {
			util.LogDebug("rx discard 15-char segment with type %q", seg[8])
			return "", "", false
		}
	default:
		util.LogDebug("rx discard %d-char segment", len(seg))
		return "", "", false
	}

	r.pending = seg
	r.awaiting = true
	r.headerTime = now
	return "", "", false
}

// isHeaderOnly reports whether seg is a complete single-segment packet
// (INIT or SOS).
func isHeaderOnly(seg string) bool {
	switch {
	case len(seg) == mesh.HeaderLenInit && mesh.Kind(seg[8]) == mesh.KindInit:
		return true
	case len(seg) == mesh.HeaderLenSOS && mesh.Kind(seg[8]) == mesh.KindSOS:
		return true
	}
	return false
}
