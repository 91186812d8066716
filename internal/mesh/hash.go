// Package mesh implements the flood-routed infrared mesh protocol: packet
// framing, deduplication, the distance-to-HQ gradient, bounded retransmission
// and the forwarding engine shared by HQ and lamp nodes.
package mesh

import (
	"fmt"
	"strconv"
	"strings"
)

// Hash computes the 16-bit rolling hash used for deduplication and message
// integrity: h = 31*h + b over the raw message bytes, wrapping at 16 bits.
func Hash(msg []byte) uint16 {
	var h uint16
	for _, b := range msg {
		h = h*31 + uint16(b)
	}
	return h
}

// HashString is a convenience wrapper for string messages.
func HashString(msg string) uint16 {
	return Hash([]byte(msg))
}

// FormatHash renders a hash as exactly four uppercase hex digits.
func FormatHash(h uint16) string {
	return fmt.Sprintf("%04X", h)
}

// ParseHash parses a 4-digit hex hash field. Both cases are accepted on the
// wire; serialization always produces uppercase.
func ParseHash(s string) (uint16, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("hash field must be 4 hex digits, got %q", s)
	}
	v, err := strconv.ParseUint(strings.ToUpper(s), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid hash field %q: %w", s, err)
	}
	return uint16(v), nil
}

// FormatHop renders a hop count as exactly two decimal digits.
func FormatHop(h uint8) string {
	return fmt.Sprintf("%02d", h)
}

// ParseHop parses a strict 2-digit decimal hop field (00..99).
func ParseHop(s string) (uint8, error) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, fmt.Errorf("hop field must be 2 decimal digits, got %q", s)
	}
	return uint8(s[0]-'0')*10 + uint8(s[1]-'0'), nil
}
