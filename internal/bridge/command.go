// Package bridge is the HQ operator channel: a line-oriented TCP command
// server plus a WebSocket mirror for dashboards. Commands are parsed here;
// execution happens in the node loop, which owns the engine.
package bridge

import (
	"errors"
	"strings"

	"github.com/vassu-v/D-LiFi-Proto/internal/mesh"
)

// Reply lines. The ERR bodies are part of the host protocol and must not be
// reworded.
const (
	ReplyOK        = "OK|Message sent"
	ReplyErrFormat = "ERR|Invalid command format"
	ReplyErrFields = "ERR|Invalid destination or type"
)

var (
	// ErrFormat flags a line that does not parse as a command at all.
	ErrFormat = errors.New("invalid command format")
	// ErrFields flags a command whose field widths or type are wrong.
	ErrFields = errors.New("invalid destination or type")
)

// Command is a parsed host command.
type Command struct {
	Dst  string
	Kind mesh.Kind
	Body string
}

// ParseCommand parses one host line. Two forms are accepted:
//
//	TX|<dst>|<type>|<message>   originate a packet (epoch id in <message> for type 0)
//	INIT|<id>                   shorthand for TX|FFFF|0|<id>
func ParseCommand(line string) (Command, error) {
	if epoch, ok := strings.CutPrefix(line, "INIT|"); ok {
		if len(epoch) != mesh.InitIDLen {
			return Command{}, ErrFields
		}
		return Command{Dst: mesh.BroadcastID, Kind: mesh.KindInit, Body: epoch}, nil
	}

	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 || parts[0] != "TX" {
		return Command{}, ErrFormat
	}
	dst, typeStr, body := parts[1], parts[2], parts[3]
	if len(dst) != mesh.IDLen || len(typeStr) != 1 {
		return Command{}, ErrFields
	}
	kind := mesh.Kind(typeStr[0])
	switch kind {
	case mesh.KindInit, mesh.KindBroadcast, mesh.KindTargeted, mesh.KindSOS, mesh.KindMessage:
	default:
		return Command{}, ErrFields
	}
	return Command{Dst: dst, Kind: kind, Body: body}, nil
}

// FormatDelivery renders a locally delivered packet as the host event line
// `<src> <type> <message>`.
func FormatDelivery(d mesh.Delivery) string {
	return d.Src + " " + string(d.Kind) + " " + d.Body
}
