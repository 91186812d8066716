package mesh

import (
	"errors"
	"fmt"
	"time"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// Role selects between the two node behaviors in the mesh.
type Role int

const (
	RoleLamp Role = iota
	RoleHQ
)

// SOSBody is the body reported to the host bridge for SOS deliveries. SOS is
// header-only on the wire; all alerts are identical.
const SOSBody = "SOS"

// Delivery is a packet locally accepted at HQ, handed to the host bridge.
type Delivery struct {
	Src  string
	Kind Kind
	Hop  uint8
	Body string
}

// Options configures an Engine. Zero sinks are replaced with no-ops and a
// zero Now with time.Now, so tests only wire what they observe.
type Options struct {
	NodeID    string
	Role      Role
	HQIDs     []string // sources honored as control traffic
	CacheSize int      // defaults per role when zero
	Tolerance uint8    // gradient tolerance K

	RetransmitCount    int
	RetransmitInterval time.Duration
	RedundancyWindow   time.Duration
	SOSCooldown        time.Duration

	Now func() time.Time

	Emit      func(header, body string) // raw carrier transmit (blocking burst)
	OnDeliver func(Delivery)            // HQ-side local sink (host bridge)
	OnLiFi    func(msg string)          // lamp-side LiFi downlink sink
	OnLED     func(on bool)             // status LED indicator
}

// Engine is the mesh protocol state machine for one node: validation,
// deduplication, gradient enforcement, re-emission and local delivery.
// It is single-owner: the node's cooperative loop is the only caller, so no
// locking is needed.
type Engine struct {
	id        string
	role      Role
	hqIDs     []string
	tolerance uint8

	cache    *Cache
	gradient *Gradient
	queue    *RetransmitQueue

	now       func() time.Time
	emit      func(header, body string)
	onDeliver func(Delivery)
	onLiFi    func(string)
	onLED     func(bool)

	sosCooldown time.Duration
	lastSOS     time.Time
	sosEver     bool
}

// NewEngine builds an engine from opts.
func NewEngine(opts Options) *Engine {
	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		if opts.Role == RoleHQ {
			cacheSize = HQCacheSize
		} else {
			cacheSize = LampCacheSize
		}
	}

	e := &Engine{
		id:          opts.NodeID,
		role:        opts.Role,
		hqIDs:       opts.HQIDs,
		tolerance:   opts.Tolerance,
		cache:       NewCache(cacheSize),
		gradient:    NewGradient(),
		queue:       NewRetransmitQueue(opts.RetransmitCount, opts.RetransmitInterval, opts.RedundancyWindow),
		now:         opts.Now,
		emit:        opts.Emit,
		onDeliver:   opts.OnDeliver,
		onLiFi:      opts.OnLiFi,
		onLED:       opts.OnLED,
		sosCooldown: opts.SOSCooldown,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.emit == nil {
		e.emit = func(string, string) {}
	}
	if e.onDeliver == nil {
		e.onDeliver = func(Delivery) {}
	}
	if e.onLiFi == nil {
		e.onLiFi = func(string) {}
	}
	if e.onLED == nil {
		e.onLED = func(bool) {}
	}
	return e
}

// CurrentHop returns the node's distance to HQ. HQ always reports 0.
func (e *Engine) CurrentHop() uint8 {
	if e.role == RoleHQ {
		return 0
	}
	return e.gradient.CurrentHop()
}

// Epoch returns the lamp's last observed INIT epoch id.
func (e *Engine) Epoch() string {
	return e.gradient.Epoch()
}

// ---------------------------------------------------------------------------
// Packet reception
// ---------------------------------------------------------------------------

// HandlePacket consumes one reassembled packet. Framing and integrity
// failures are dropped silently (logged); everything else follows the
// per-type dispatch: dedup check, gradient check, re-emit, local delivery.
func (e *Engine) HandlePacket(header, body string) {
	p, err := Parse(header, body)
	if err != nil {
		util.Stats.AddCorrupted()
		util.LogDebug("rx discard: %v (header %q)", err, header)
		return
	}
	util.Stats.AddRX()

	switch p.Kind {
	case KindInit:
		e.handleInit(p)
	case KindBroadcast, KindTargeted:
		e.handleFlood(p)
	case KindSOS, KindMessage:
		e.handleRouted(p)
	}
}

// handleInit spreads the gradient outward. The gradient update always runs;
// re-emission is bounded by the (src, 0) dedup sentinel. HQ originates INIT
// waves and never re-emits one.
func (e *Engine) handleInit(p Packet) {
	if e.role == RoleHQ {
		util.LogDebug("init echo from %s (epoch %s, hop %d), not re-emitting", p.Src, p.InitID, p.Hop)
		return
	}

	e.gradient.OnInit(p.InitID, p.Hop)

	if !e.cache.CheckAndInsert(p.Src, SentinelHash) {
		util.Stats.AddDuplicate()
		util.LogDebug("init from %s already relayed", p.Src)
		return
	}

	hop := p.Hop
	if hop < MaxHop {
		hop++
	}
	fwd := Packet{Kind: KindInit, Src: p.Src, InitID: p.InitID, Hop: hop}
	util.LogInfo("forwarding INIT epoch %s with hop %d (my hop %d)", p.InitID, hop, e.CurrentHop())
	e.blinkSend(fwd.Header(), "")
}

// handleFlood handles BROADCAST and TARGETED: no gradient check, forwarded
// unchanged when new. Forwarding and local delivery are independent — a lamp
// relays a targeted packet even when it is the target.
func (e *Engine) handleFlood(p Packet) {
	fresh := e.cache.CheckAndInsert(p.Src, p.Hash)
	if !fresh {
		util.Stats.AddDuplicate()
		util.LogDebug("duplicate %s from %s (hash %s)", p.Kind, p.Src, FormatHash(p.Hash))
		return
	}

	util.Stats.AddForwarded()
	e.blinkSend(p.Header(), p.Body)

	if !e.isAuthorizedHQ(p.Src) {
		return
	}
	switch {
	case p.Kind == KindBroadcast && p.Dst == BroadcastID:
		util.LogInfo("broadcast from HQ %s: %q", p.Src, p.Body)
		e.onLiFi(p.Body)
	case p.Kind == KindTargeted && p.Dst == e.id:
		util.LogInfo("targeted broadcast from HQ %s: %q", p.Src, p.Body)
		e.onLiFi(p.Body)
	}
}

// handleRouted handles SOS and MESSAGE: gradient-checked, hop decrements
// toward HQ. A node farther from HQ than the previous hop would push the
// packet away from HQ, so it stays silent; K ≥ 1 keeps one ring of lateral
// redundancy.
func (e *Engine) handleRouted(p Packet) {
	myHop := e.CurrentHop()
	if int(myHop) > int(p.Hop)+int(e.tolerance) {
		util.Stats.AddSuppressed()
		util.LogDebug("gradient suppressed %s from %s (my hop %d > msg hop %d + %d)",
			p.Kind, p.Src, myHop, p.Hop, e.tolerance)
		return
	}

	hash := SentinelHash
	if p.Kind == KindMessage {
		hash = p.Hash
	}
	if !e.cache.CheckAndInsert(p.Src, hash) {
		util.Stats.AddDuplicate()
		util.LogDebug("duplicate %s from %s", p.Kind, p.Src)
		return
	}

	fwd := p
	if fwd.Hop > 0 {
		fwd.Hop--
	}
	util.Stats.AddForwarded()
	util.LogInfo("forwarding %s from %s with hop %d", p.Kind, p.Src, fwd.Hop)
	e.blinkSend(fwd.Header(), fwd.Body)

	if e.role == RoleHQ {
		body := p.Body
		if p.Kind == KindSOS {
			body = SOSBody
		}
		e.onDeliver(Delivery{Src: p.Src, Kind: p.Kind, Hop: p.Hop, Body: body})
	}
}

// ---------------------------------------------------------------------------
// Origination
// ---------------------------------------------------------------------------

// OriginateInit starts a new gradient flood wave. HQ only.
func (e *Engine) OriginateInit(initID string) error {
	if e.role != RoleHQ {
		return errors.New("only HQ originates INIT")
	}
	if len(initID) != InitIDLen {
		return fmt.Errorf("init epoch id must be %d chars, got %q", InitIDLen, initID)
	}
	p := Packet{Kind: KindInit, Src: e.id, InitID: initID, Hop: 0}
	util.LogInfo("originating INIT epoch %s", initID)
	e.send(p.Header(), "")
	return nil
}

// OriginateBroadcast floods a message to every lamp for LiFi rebroadcast.
func (e *Engine) OriginateBroadcast(body string) error {
	return e.originateFlood(KindBroadcast, BroadcastID, body)
}

// OriginateTargeted floods a message that only the dst lamp hands to LiFi.
func (e *Engine) OriginateTargeted(dst, body string) error {
	return e.originateFlood(KindTargeted, dst, body)
}

func (e *Engine) originateFlood(kind Kind, dst, body string) error {
	if len(dst) != IDLen {
		return fmt.Errorf("destination id must be %d chars, got %q", IDLen, dst)
	}
	h := HashString(body)
	p := Packet{Kind: kind, Src: e.id, Dst: dst, Hash: h, Body: body}
	e.cache.CheckAndInsert(e.id, h) // our own flood must not echo back through us
	e.send(p.Header(), body)
	return nil
}

// OriginateMessage sends a content message routed by the gradient, stamped
// with this node's current hop.
func (e *Engine) OriginateMessage(dst, body string) error {
	if len(dst) != IDLen {
		return fmt.Errorf("destination id must be %d chars, got %q", IDLen, dst)
	}
	h := HashString(body)
	p := Packet{Kind: KindMessage, Src: e.id, Dst: dst, Hash: h, Hop: e.CurrentHop(), Body: body}
	e.cache.CheckAndInsert(e.id, h)
	e.send(p.Header(), body)
	return nil
}

// OriginateSOS emits the header-only emergency alert toward HQ. Presses
// inside the cooldown window are silently dropped; the (self, 0) sentinel is
// inserted first so the node's own SOS never rebounds through it. Returns
// whether the alert was sent.
func (e *Engine) OriginateSOS() bool {
	if len(e.hqIDs) == 0 {
		util.LogError("no HQ id configured, cannot send SOS")
		return false
	}
	now := e.now()
	if e.sosEver && now.Sub(e.lastSOS) < e.sosCooldown {
		util.LogDebug("SOS suppressed by cooldown (%s since last)", now.Sub(e.lastSOS))
		return false
	}
	e.lastSOS = now
	e.sosEver = true

	p := Packet{Kind: KindSOS, Src: e.id, Dst: e.hqIDs[0], Hop: e.CurrentHop()}
	e.cache.CheckAndInsert(e.id, SentinelHash)
	util.LogInfo("SOS transmitted toward HQ (hop %d)", p.Hop)
	e.blinkSend(p.Header(), "")
	return true
}

// OriginateFromHost services one validated host-bridge command. The epoch id
// for type '0' rides in the command's message field.
func (e *Engine) OriginateFromHost(dst string, kind Kind, body string) error {
	switch kind {
	case KindInit:
		return e.OriginateInit(body)
	case KindBroadcast:
		return e.originateFlood(KindBroadcast, dst, body)
	case KindTargeted:
		return e.originateFlood(KindTargeted, dst, body)
	case KindSOS:
		if len(dst) != IDLen {
			return fmt.Errorf("destination id must be %d chars, got %q", IDLen, dst)
		}
		p := Packet{Kind: KindSOS, Src: e.id, Dst: dst, Hop: e.CurrentHop()}
		e.cache.CheckAndInsert(e.id, SentinelHash)
		e.send(p.Header(), "")
		return nil
	case KindMessage:
		return e.OriginateMessage(dst, body)
	}
	return fmt.Errorf("unknown packet type %q", byte(kind))
}

// ---------------------------------------------------------------------------
// Transmission plumbing
// ---------------------------------------------------------------------------

// PumpRetransmits services the redundancy queue. Call once per loop tick.
func (e *Engine) PumpRetransmits() {
	e.queue.Tick(e.now(), e.rawEmit)
}

// PendingRetransmits returns the number of active redundancy slots.
func (e *Engine) PendingRetransmits() int {
	return e.queue.Active()
}

// send performs the first transmission and schedules the redundancy retries.
func (e *Engine) send(header, body string) {
	e.rawEmit(header, body)
	e.queue.Add(header, body, e.now())
}

// rawEmit is the retry-safe transmit path: carrier only, never re-enqueued.
func (e *Engine) rawEmit(header, body string) {
	util.Stats.AddTX()
	e.emit(header, body)
}

func (e *Engine) blinkSend(header, body string) {
	e.onLED(true)
	e.send(header, body)
	e.onLED(false)
}

func (e *Engine) isAuthorizedHQ(src string) bool {
	for _, id := range e.hqIDs {
		if src == id {
			return true
		}
	}
	return false
}
