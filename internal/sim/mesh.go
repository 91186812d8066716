// Package sim wires several in-memory nodes into a small mesh on a virtual
// clock. It backs the end-to-end tests and the `dlifi sim` demo.
package sim

import (
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/config"
	"github.com/vassu-v/D-LiFi-Proto/internal/ir"
	"github.com/vassu-v/D-LiFi-Proto/internal/mesh"
)

// Node is one simulated participant. Sinks record what the real hardware
// would have done: LiFi transmissions at lamps, host deliveries at HQ.
type Node struct {
	ID    string
	Cfg   config.Config
	Drv   *ir.Loopback
	Eng   *mesh.Engine
	Reasm *ir.Reassembler
	Sched *ir.Scheduler

	Deliveries []mesh.Delivery // HQ only
	LiFi       []string        // lamp only
}

// Mesh is a field of simulated nodes sharing one virtual clock.
type Mesh struct {
	now   time.Time
	Nodes []*Node
}

// NewMesh creates an empty mesh starting at the given instant.
func NewMesh(start time.Time) *Mesh {
	return &Mesh{now: start}
}

// Now returns the current virtual time.
func (m *Mesh) Now() time.Time {
	return m.now
}

// Advance moves the virtual clock forward.
func (m *Mesh) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// AddHQ adds an HQ node with the production defaults for id.
func (m *Mesh) AddHQ(id string) *Node {
	return m.add(config.DefaultHQ(id))
}

// AddLamp adds a lamp node with the production defaults for id.
func (m *Mesh) AddLamp(id string) *Node {
	return m.add(config.DefaultLamp(id))
}

// AddNode adds a node with an explicit configuration.
func (m *Mesh) AddNode(cfg config.Config) *Node {
	return m.add(cfg)
}

func (m *Mesh) add(cfg config.Config) *Node {
	n := &Node{
		ID:    cfg.NodeID,
		Cfg:   cfg,
		Drv:   ir.NewLoopback(),
		Reasm: ir.NewReassembler(cfg.IRMessageTimeout.Std()),
	}

	n.Sched = ir.NewScheduler(n.Drv)
	n.Sched.SetSleep(func(time.Duration) {}) // bursts are instant in the sim

	n.Eng = mesh.NewEngine(mesh.Options{
		NodeID:             cfg.NodeID,
		Role:               cfg.MeshRole(),
		HQIDs:              cfg.HQIDs,
		CacheSize:          cfg.CacheSize,
		Tolerance:          cfg.GradientTolerance,
		RetransmitCount:    cfg.RetransmitCount,
		RetransmitInterval: cfg.RetransmitInterval.Std(),
		RedundancyWindow:   cfg.RedundancyWindow.Std(),
		SOSCooldown:        cfg.SOSCooldown.Std(),
		Now:                func() time.Time { return m.now },
		Emit:               func(header, body string) { n.Sched.Emit(header, body) },
		OnDeliver:          func(d mesh.Delivery) { n.Deliveries = append(n.Deliveries, d) },
		OnLiFi:             func(msg string) { n.LiFi = append(n.LiFi, msg) },
	})

	m.Nodes = append(m.Nodes, n)
	return n
}

// Link points one of a's emitters at b's receiver and one of b's emitters
// back at a, modelling two lamps facing each other across a street.
func (m *Mesh) Link(a *Node, aDir ir.Direction, b *Node, bDir ir.Direction) {
	a.Drv.Attach(aDir, b.Drv.Inject)
	b.Drv.Attach(bDir, a.Drv.Inject)
}

// Line links the nodes into a chain FRONT↔BACK, in order.
func (m *Mesh) Line(nodes ...*Node) {
	for i := 0; i+1 < len(nodes); i++ {
		m.Link(nodes[i], ir.DirFront, nodes[i+1], ir.DirBack)
	}
}

// pump drains one node's receiver through its reassembler and engine.
// Reports whether any character was consumed.
func (n *Node) pump(now time.Time) bool {
	processed := false
	for {
		b, ok := n.Drv.Recv()
		if !ok {
			break
		}
		processed = true
		if header, body, done := n.Reasm.Feed(b, now); done {
			n.Eng.HandlePacket(header, body)
		}
	}
	n.Reasm.Expire(now)
	return processed
}

// Settle pumps every node repeatedly until no characters remain in flight,
// bounded by maxRounds against pathological flooding.
func (m *Mesh) Settle(maxRounds int) {
	for round := 0; round < maxRounds; round++ {
		busy := false
		for _, n := range m.Nodes {
			if n.pump(m.now) {
				busy = true
			}
		}
		if !busy {
			return
		}
	}
}

// Tick advances the clock and services every node's timed work: expiry,
// retransmissions, then a settle pass for anything the retries put on air.
func (m *Mesh) Tick(d time.Duration) {
	m.Advance(d)
	for _, n := range m.Nodes {
		n.Reasm.Expire(m.now)
		n.Eng.PumpRetransmits()
	}
	m.Settle(64)
}
