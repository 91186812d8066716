package sim

import (
	"time"

	"github.com/pterm/pterm"

	"github.com/vassu-v/D-LiFi-Proto/internal/mesh"
)

// RunDemo exercises a five-node street on the console: gradient survey,
// an HQ broadcast reaching every lamp, and an SOS from the far end.
func RunDemo() {
	m := NewMesh(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	hq := m.AddHQ("000h")
	lamps := []*Node{
		m.AddLamp("102a"),
		m.AddLamp("203b"),
		m.AddLamp("304c"),
		m.AddLamp("405d"),
	}
	m.Line(append([]*Node{hq}, lamps...)...)

	pterm.DefaultSection.Println("Gradient survey")
	_ = hq.Eng.OriginateInit("01")
	m.Settle(64)
	rows := pterm.TableData{{"Node", "Hop", "Epoch"}}
	rows = append(rows, []string{hq.ID, "00", "-"})
	for _, l := range lamps {
		rows = append(rows, []string{l.ID, mesh.FormatHop(l.Eng.CurrentHop()), l.Eng.Epoch()})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	pterm.DefaultSection.Println("HQ broadcast")
	_ = hq.Eng.OriginateBroadcast("Evacuation-route-open")
	m.Settle(64)
	for _, l := range lamps {
		pterm.Info.Printfln("%s LiFi: %v", l.ID, l.LiFi)
	}

	pterm.DefaultSection.Println("SOS from the far end")
	lamps[len(lamps)-1].Eng.OriginateSOS()
	m.Settle(64)
	for _, d := range hq.Deliveries {
		pterm.Warning.Printfln("HQ alert: %s from %s at %d hops", d.Body, d.Src, d.Hop)
	}
}
