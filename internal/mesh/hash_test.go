package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHashGoldens pins the rolling hash against hand-computed values of the
// h = 31h + b polynomial with 16-bit wrap.
func TestHashGoldens(t *testing.T) {
	testCases := []struct {
		msg  string
		want uint16
	}{
		{"", 0x0000},
		{"A", 0x0041},
		{"HELP!", 0x2100},
		{"Hello", 0x28B2}, // wraps 16-bit
		{"SOS", 0x4177},
	}

	for _, tc := range testCases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, HashString(tc.msg))
		})
	}
}

func TestHashDeterminism(t *testing.T) {
	msg := []byte("status:battery=87%")
	assert.Equal(t, Hash(msg), Hash(msg))
}

func TestFormatHashUppercaseFixedWidth(t *testing.T) {
	assert.Equal(t, "0000", FormatHash(0))
	assert.Equal(t, "004D", FormatHash(0x4D))
	assert.Equal(t, "28B2", FormatHash(0x28B2))
	assert.Equal(t, "FFFF", FormatHash(0xFFFF))
}

func TestParseHashBothCases(t *testing.T) {
	for _, s := range []string{"28b2", "28B2"} {
		v, err := ParseHash(s)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x28B2), v)
	}

	for _, s := range []string{"", "1", "12345", "28G2"} {
		_, err := ParseHash(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestHopFormatting(t *testing.T) {
	assert.Equal(t, "00", FormatHop(0))
	assert.Equal(t, "07", FormatHop(7))
	assert.Equal(t, "99", FormatHop(99))

	v, err := ParseHop("42")
	require.NoError(t, err)
	assert.Equal(t, uint8(42), v)

	for _, s := range []string{"", "4", "123", "4x", " 4"} {
		_, err := ParseHop(s)
		assert.Error(t, err, "input %q", s)
	}
}
