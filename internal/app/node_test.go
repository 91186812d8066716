package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vassu-v/D-LiFi-Proto/internal/bridge"
	"github.com/vassu-v/D-LiFi-Proto/internal/config"
	"github.com/vassu-v/D-LiFi-Proto/internal/ir"
)

// testHQ builds an HQ node on a loopback carrier with negligible IR gaps so
// bursts finish instantly.
func testHQ(t *testing.T) *Node {
	t.Helper()
	cfg := config.DefaultHQ("000h")
	cfg.IRCharGap = config.Duration(time.Nanosecond)
	cfg.IRSegmentGap = config.Duration(time.Nanosecond)
	cfg.IRDirectionGap = config.Duration(time.Nanosecond)

	node, err := NewNode(cfg, ir.NewLoopback())
	require.NoError(t, err)
	return node
}

func reply(replies *[]string) func(string) {
	return func(s string) { *replies = append(*replies, s) }
}

func TestHandleRequestReplies(t *testing.T) {
	node := testHQ(t)

	testCases := []struct {
		name string
		line string
		want string
	}{
		{"broadcast ok", "TX|FFFF|1|Evacuation route open", bridge.ReplyOK},
		{"targeted ok", "TX|102a|2|Check battery", bridge.ReplyOK},
		{"init ok", "TX|FFFF|0|03", bridge.ReplyOK},
		{"init shorthand ok", "INIT|04", bridge.ReplyOK},
		{"missing pipes", "TX|FFFF|1", bridge.ReplyErrFormat},
		{"garbage", "status please", bridge.ReplyErrFormat},
		{"short dst", "TX|FFF|1|x", bridge.ReplyErrFields},
		{"unknown type", "TX|FFFF|7|x", bridge.ReplyErrFields},
		{"bad epoch via TX", "TX|FFFF|0|123", bridge.ReplyErrFields},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var replies []string
			node.handleRequest(bridge.Request{Line: tc.line, Reply: reply(&replies)})
			require.Len(t, replies, 1)
			assert.Equal(t, tc.want, replies[0])
		})
	}
}

func TestNewNodeRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultHQ("000h")
	cfg.NodeID = "xy"
	_, err := NewNode(cfg, ir.NewLoopback())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	node := testHQ(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
