package mesh

import "github.com/vassu-v/D-LiFi-Proto/internal/util"

// Gradient tracks a lamp's distance to HQ. Each INIT flood wave carries a
// 2-char epoch tag; within an epoch the hop may only improve, while a new
// epoch overwrites it unconditionally so the operator can force a re-survey.
// HQ has no gradient state; its hop is always 0.
type Gradient struct {
	lastInitID string // last observed epoch; empty until the first INIT
	hop        uint8
}

// NewGradient returns a gradient in the uninitialized state (hop 99).
func NewGradient() *Gradient {
	return &Gradient{hop: InitialHop}
}

// OnInit applies one received INIT observation. Within the current epoch the
// hop is updated only on strict improvement (receivedHop+1 < hop), which
// prevents oscillation; a new epoch id wins unconditionally.
func (g *Gradient) OnInit(initID string, receivedHop uint8) {
	if initID == g.lastInitID {
		if int(receivedHop)+1 < int(g.hop) {
			util.LogDebug("gradient: hop %d -> %d (epoch %s)", g.hop, receivedHop+1, initID)
			g.hop = receivedHop + 1
		}
		return
	}
	g.lastInitID = initID
	g.hop = receivedHop + 1
	util.LogDebug("gradient: new epoch %s, hop reset to %d", initID, g.hop)
}

// CurrentHop returns the node's current distance to HQ.
func (g *Gradient) CurrentHop() uint8 {
	return g.hop
}

// Epoch returns the last observed INIT epoch id, or "" before the first INIT.
func (g *Gradient) Epoch() string {
	return g.lastInitID
}
