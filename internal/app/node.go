// Package app assembles a running node: protocol engine, carrier, host
// bridge and LiFi beacon, driven by one cooperative loop.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/bridge"
	"github.com/vassu-v/D-LiFi-Proto/internal/config"
	"github.com/vassu-v/D-LiFi-Proto/internal/ir"
	"github.com/vassu-v/D-LiFi-Proto/internal/lifi"
	"github.com/vassu-v/D-LiFi-Proto/internal/mesh"
	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// pollInterval is the loop tick. The carrier delivers one character per
// ~100 ms, so 10 ms keeps the receiver drained with margin.
const pollInterval = 10 * time.Millisecond

// Node is one running mesh participant. All protocol state is owned by the
// goroutine inside Run; the bridge and SOS sources communicate with it
// through channels only.
type Node struct {
	cfg    config.Config
	drv    ir.Driver
	eng    *mesh.Engine
	reasm  *ir.Reassembler
	sched  *ir.Scheduler
	beacon *lifi.Beacon

	srv *bridge.Server
	sos <-chan struct{}

	now func() time.Time
}

// NewNode wires a node from its configuration and carrier driver.
func NewNode(cfg config.Config, drv ir.Driver) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Node{
		cfg:   cfg,
		drv:   drv,
		reasm: ir.NewReassembler(cfg.IRMessageTimeout.Std()),
		now:   time.Now,
	}

	n.sched = ir.NewScheduler(drv)
	n.sched.SetGaps(cfg.IRCharGap.Std(), cfg.IRSegmentGap.Std(), cfg.IRDirectionGap.Std())

	n.beacon = lifi.NewBeacon(nil, cfg.LiFiRebroadcastInterval.Std())

	n.eng = mesh.NewEngine(mesh.Options{
		NodeID:             cfg.NodeID,
		Role:               cfg.MeshRole(),
		HQIDs:              cfg.HQIDs,
		CacheSize:          cfg.CacheSize,
		Tolerance:          cfg.GradientTolerance,
		RetransmitCount:    cfg.RetransmitCount,
		RetransmitInterval: cfg.RetransmitInterval.Std(),
		RedundancyWindow:   cfg.RedundancyWindow.Std(),
		SOSCooldown:        cfg.SOSCooldown.Std(),
		Emit:               n.sched.Emit,
		OnDeliver:          n.deliver,
		OnLiFi:             func(msg string) { n.beacon.Set(msg, n.now()) },
	})

	return n, nil
}

// Engine exposes the protocol engine, mainly for origination on behalf of
// local controls.
func (n *Node) Engine() *mesh.Engine {
	return n.eng
}

// AttachBridge wires the HQ host bridge. Commands queue on the server and
// are executed inside the node loop.
func (n *Node) AttachBridge(srv *bridge.Server) {
	n.srv = srv
}

// AttachSOS wires the lamp's debounced SOS pushbutton source.
func (n *Node) AttachSOS(ch <-chan struct{}) {
	n.sos = ch
}

// Run drives the cooperative loop until ctx is cancelled: drain and process
// complete RX packets, pump the retransmit queue and LiFi beacon, service
// origination events. Returns nil on clean shutdown.
func (n *Node) Run(ctx context.Context) error {
	n.drv.StartRX()

	var requests <-chan bridge.Request
	if n.srv != nil {
		requests = n.srv.Requests()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	util.LogInfo("node %s running as %s", n.cfg.NodeID, n.cfg.Role)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			n.Step(n.now())

		case req := <-requests:
			n.handleRequest(req)

		case <-n.sos:
			n.eng.OriginateSOS()
		}
	}
}

// Step runs one loop iteration at the given instant. Run calls it on every
// tick with the wall-clock time.
func (n *Node) Step(now time.Time) {
	for {
		b, ok := n.drv.Recv()
		if !ok {
			break
		}
		if header, body, done := n.reasm.Feed(b, now); done {
			n.eng.HandlePacket(header, body)
		}
	}
	n.reasm.Expire(now)
	n.eng.PumpRetransmits()
	n.beacon.Tick(now)
}

// handleRequest executes one host command against the engine and replies on
// the issuing connection.
func (n *Node) handleRequest(req bridge.Request) {
	cmd, err := bridge.ParseCommand(req.Line)
	switch {
	case errors.Is(err, bridge.ErrFormat):
		req.Reply(bridge.ReplyErrFormat)
		return
	case err != nil:
		req.Reply(bridge.ReplyErrFields)
		return
	}

	if err := n.eng.OriginateFromHost(cmd.Dst, cmd.Kind, cmd.Body); err != nil {
		util.LogWarning("host command rejected: %v", err)
		req.Reply(bridge.ReplyErrFields)
		return
	}
	req.Reply(bridge.ReplyOK)
}

// deliver publishes a locally accepted packet to the host bridge.
func (n *Node) deliver(d mesh.Delivery) {
	line := bridge.FormatDelivery(d)
	util.LogInfo("delivered: %s", line)
	if n.srv != nil {
		n.srv.Publish(line)
	}
}
