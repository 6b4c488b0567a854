package core

import (
	"math"

	"github.com/signalsfoundry/solarmesh-simulator/model"
)

// BodyView is one body's renderable state at snapshot time.
type BodyView struct {
	ID          string         `json:"id"`
	Kind        model.BodyKind `json:"kind"`
	Radius      float64        `json:"radius"`
	ParentID    string         `json:"parent_id,omitempty"`
	OrbitRadius float64        `json:"orbit_radius,omitempty"`
	Color       string         `json:"color,omitempty"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
}

// EdgeView is one weighted link between two satellites.
type EdgeView struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Weight float64 `json:"weight"`
}

// PacketView is one packet's state with its position resolved onto the
// current leg of its path. From, To and EdgeProgress are only set while
// the packet is in transit.
type PacketView struct {
	ID           string      `json:"id"`
	Source       string      `json:"source"`
	Destination  string      `json:"destination"`
	State        PacketState `json:"state"`
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	From         string      `json:"from,omitempty"`
	To           string      `json:"to,omitempty"`
	EdgeProgress float64     `json:"edge_progress"`
}

// Snapshot is a deep copy of one tick's fully computed state. It never
// changes after it is built, so holders may read it while the engine
// moves on to later ticks.
type Snapshot struct {
	Tick        uint64       `json:"tick"`
	SimTime     float64      `json:"sim_time"`
	Bodies      []BodyView   `json:"bodies"`
	GraphEdges  []EdgeView   `json:"graph_edges"`
	ForestEdges []EdgeView   `json:"forest_edges"`
	Components  int          `json:"components"`
	Unreachable []string     `json:"unreachable,omitempty"`
	Packets     []PacketView `json:"packets"`
}

// buildSnapshot copies the tick results out of the live structures.
// Positions are read from the system at call time, so it must run after
// every update of the tick has finished.
func buildSnapshot(tick uint64, simTime float64, sys *System, g *VisibilityGraph, f *SpanningForest, packets []*Packet) *Snapshot {
	snap := &Snapshot{
		Tick:        tick,
		SimTime:     simTime,
		GraphEdges:  copyEdges(g.Edges),
		ForestEdges: copyEdges(f.Edges),
		Components:  f.ComponentCount(),
		Unreachable: f.Singletons(),
	}

	bodies := sys.GetAllBodies()
	snap.Bodies = make([]BodyView, 0, len(bodies))
	for _, b := range bodies {
		v := BodyView{
			ID:       b.ID,
			Kind:     b.Kind,
			Radius:   b.Radius,
			ParentID: b.ParentID,
			Color:    b.Color,
			X:        b.Position.X,
			Y:        b.Position.Y,
		}
		if orbit, ok := b.Motion.(*CircularOrbit); ok {
			v.OrbitRadius = orbit.Radius
		}
		snap.Bodies = append(snap.Bodies, v)
	}

	snap.Packets = make([]PacketView, 0, len(packets))
	for _, p := range packets {
		pv := PacketView{
			ID:          p.ID,
			Source:      p.Source,
			Destination: p.Destination,
			State:       p.State,
			X:           p.Position.X,
			Y:           p.Position.Y,
		}
		if p.State == PacketInTransit {
			pv.From = p.Path[p.NextHop-1]
			pv.To = p.Path[p.NextHop]
			pv.EdgeProgress = legProgress(sys, pv.From, pv.To, p.Position)
		}
		snap.Packets = append(snap.Packets, pv)
	}
	return snap
}

func copyEdges(edges []Edge) []EdgeView {
	out := make([]EdgeView, len(edges))
	for i, e := range edges {
		out[i] = EdgeView{A: e.A, B: e.B, Weight: e.Weight}
	}
	return out
}

// legProgress places a position along the from-to leg as a fraction in
// [0, 1], measured against the satellites' current positions.
func legProgress(sys *System, from, to string, pos Vec2) float64 {
	a := sys.GetBody(from)
	b := sys.GetBody(to)
	if a == nil || b == nil {
		return 0
	}
	leg := a.Position.DistanceTo(b.Position)
	if leg <= 0 {
		return 1
	}
	return math.Min(1, math.Max(0, a.Position.DistanceTo(pos)/leg))
}
