package core

import (
	"fmt"
	"math/rand"

	"github.com/signalsfoundry/solarmesh-simulator/telemetry"
)

// PacketManager owns the set of live packets and drives their lifecycle
// against the spanning forest recomputed each tick.
type PacketManager struct {
	// Speed is the distance a packet covers per simulated second.
	Speed float64
	// GenerationProbability is the chance, per satellite per tick, of
	// emitting a new packet.
	GenerationProbability float64
	// MaxRouteRetries caps consecutive failed reroute attempts; a stranded
	// packet whose failure count reaches the cap is dropped.
	MaxRouteRetries int

	rng  *rand.Rand
	sink telemetry.Sink

	seq     int
	packets map[string]*Packet
	order   []string
}

// NewPacketManager creates a manager with the given random source and event
// sink. The sink may be nil, in which case lifecycle events are discarded.
func NewPacketManager(rng *rand.Rand, sink telemetry.Sink) *PacketManager {
	return &PacketManager{
		Speed:                 5.0,
		GenerationProbability: 0.01,
		MaxRouteRetries:       100,
		rng:                   rng,
		sink:                  sink,
		packets:               make(map[string]*Packet),
	}
}

// Tick runs one full lifecycle pass: packets whose paths no longer exist in
// the forest are stranded, packets stranded on an earlier tick are rerouted
// or dropped, new packets are generated, and live packets advance by this
// tick's distance budget. Terminal packets are removed at the end.
func (m *PacketManager) Tick(tick uint64, sys *System, forest *SpanningForest, dt float64) {
	m.revalidate(tick, forest)
	m.retryStranded(tick, forest)
	m.generate(tick, sys, forest)
	m.advance(tick, sys, dt)
	m.sweep()
}

// Packets returns the live packets in creation order.
// NOTE: the returned pointers reference internal state; callers must treat
// them as read-only.
func (m *PacketManager) Packets() []*Packet {
	out := make([]*Packet, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.packets[id])
	}
	return out
}

// InFlight returns the number of live packets.
func (m *PacketManager) InFlight() int {
	return len(m.order)
}

// revalidate strands every in-transit packet whose remaining path is no
// longer fully present in the forest. Checking the whole remainder rather
// than just the current leg keeps a packet from advancing onto a vanished
// edge later in the same tick.
func (m *PacketManager) revalidate(tick uint64, forest *SpanningForest) {
	for _, id := range m.order {
		p := m.packets[id]
		if p.State != PacketInTransit {
			continue
		}
		if m.pathIntact(p, forest) {
			continue
		}
		p.State = PacketStranded
		p.StrandedTick = tick
		p.Path = nil
		p.NextHop = 0
		m.emit(telemetry.NewPacketStrandedEvent(tick, p.ID, p.Source, p.Destination, string(PacketInTransit), p.Retries))
	}
}

func (m *PacketManager) pathIntact(p *Packet, forest *SpanningForest) bool {
	for i := p.NextHop - 1; i < len(p.Path)-1; i++ {
		if !forest.HasEdge(p.Path[i], p.Path[i+1]) {
			return false
		}
	}
	return true
}

// retryStranded attempts to reroute packets stranded on an earlier tick,
// from their current holder to their original destination. Each failed
// attempt counts against MaxRouteRetries.
func (m *PacketManager) retryStranded(tick uint64, forest *SpanningForest) {
	for _, id := range m.order {
		p := m.packets[id]
		if p.State != PacketStranded || p.StrandedTick == tick {
			continue
		}
		path, ok := Route(forest, p.Holder, p.Destination)
		if !ok {
			p.Retries++
			if p.Retries >= m.MaxRouteRetries {
				p.State = PacketDropped
				m.emit(telemetry.NewPacketDroppedEvent(tick, p.ID, p.Source, p.Destination, p.Retries, tick-p.GeneratedTick))
			}
			continue
		}
		if len(path) == 1 {
			p.State = PacketArrived
			m.emit(telemetry.NewPacketArrivedEvent(tick, p.ID, p.Source, p.Destination, p.Hops, tick-p.GeneratedTick))
			continue
		}
		p.Path = path
		p.NextHop = 1
		p.State = PacketInTransit
		p.Retries = 0
		m.emit(telemetry.NewPacketReroutedEvent(tick, p.ID, p.Source, p.Destination, len(path)-1))
	}
}

// generate rolls the generation probability for every satellite in ID order
// and spawns packets toward a uniformly chosen other satellite. The choice
// deliberately ignores reachability: a packet whose destination lies in
// another component strands immediately and waits for the topology to heal.
func (m *PacketManager) generate(tick uint64, sys *System, forest *SpanningForest) {
	if m.GenerationProbability <= 0 {
		return
	}
	sats := sys.GetSatellites()
	if len(sats) < 2 {
		return
	}
	for i, sat := range sats {
		if m.rng.Float64() >= m.GenerationProbability {
			continue
		}
		j := m.rng.Intn(len(sats) - 1)
		if j >= i {
			j++
		}
		m.spawn(tick, forest, sat, sats[j])
	}
}

func (m *PacketManager) spawn(tick uint64, forest *SpanningForest, src, dst *Body) *Packet {
	m.seq++
	p := &Packet{
		ID:            fmt.Sprintf("pkt-%06d", m.seq),
		Source:        src.ID,
		Destination:   dst.ID,
		State:         PacketGenerated,
		Holder:        src.ID,
		Position:      src.Position,
		GeneratedTick: tick,
	}
	m.packets[p.ID] = p
	m.order = append(m.order, p.ID)
	m.emit(telemetry.NewPacketGeneratedEvent(tick, p.ID, p.Source, p.Destination))

	if path, ok := Route(forest, p.Source, p.Destination); ok {
		p.Path = path
		p.NextHop = 1
		p.State = PacketInTransit
	} else {
		p.State = PacketStranded
		p.StrandedTick = tick
		m.emit(telemetry.NewPacketStrandedEvent(tick, p.ID, p.Source, p.Destination, string(PacketGenerated), 0))
	}
	return p
}

// advance moves in-transit packets toward their next hop, carrying leftover
// budget across hops so short paths can complete within a single tick.
// Stranded packets track their holder's position.
func (m *PacketManager) advance(tick uint64, sys *System, dt float64) {
	budget := m.Speed * dt
	for _, id := range m.order {
		p := m.packets[id]
		switch p.State {
		case PacketStranded:
			if holder := sys.GetBody(p.Holder); holder != nil {
				p.Position = holder.Position
			}
		case PacketInTransit:
			m.advanceOne(tick, sys, p, budget)
		}
	}
}

func (m *PacketManager) advanceOne(tick uint64, sys *System, p *Packet, budget float64) {
	for budget > 0 {
		target := sys.GetBody(p.Path[p.NextHop])
		dist := p.Position.DistanceTo(target.Position)
		if dist > budget {
			frac := budget / dist
			p.Position = Vec2{
				X: p.Position.X + (target.Position.X-p.Position.X)*frac,
				Y: p.Position.Y + (target.Position.Y-p.Position.Y)*frac,
			}
			return
		}
		p.Position = target.Position
		p.Holder = target.ID
		p.Hops++
		budget -= dist
		if p.NextHop == len(p.Path)-1 {
			p.State = PacketArrived
			m.emit(telemetry.NewPacketArrivedEvent(tick, p.ID, p.Source, p.Destination, p.Hops, tick-p.GeneratedTick))
			return
		}
		p.NextHop++
	}
}

// sweep drops terminal packets from the live set.
func (m *PacketManager) sweep() {
	kept := m.order[:0]
	for _, id := range m.order {
		p := m.packets[id]
		if p.State == PacketArrived || p.State == PacketDropped {
			delete(m.packets, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

func (m *PacketManager) emit(ev telemetry.Event) {
	if m.sink != nil {
		m.sink.Record(ev)
	}
}
