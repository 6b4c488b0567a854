// Package telemetry carries the simulation's structured event stream:
// topology rebuilds and packet lifecycle transitions, fanned out to
// logging, CSV export and windowed statistics.
package telemetry

// EventKind identifies a telemetry event.
type EventKind string

const (
	EventMSTRebuilt      EventKind = "mst-rebuilt"
	EventPacketGenerated EventKind = "packet-generated"
	EventPacketArrived   EventKind = "packet-arrived"
	EventPacketStranded  EventKind = "packet-stranded"
	EventPacketRerouted  EventKind = "packet-rerouted"
	EventPacketDropped   EventKind = "packet-dropped"
)

// Event is one record in the append-only stream. Packet events carry
// the packet's identity and the state transition that produced them;
// topology events carry forest counts instead.
type Event struct {
	Kind EventKind `csv:"kind"`
	Tick uint64    `csv:"tick"`

	// Packet events.
	PacketID    string `csv:"packet_id"`
	Source      string `csv:"source"`
	Destination string `csv:"destination"`
	PriorState  string `csv:"prior_state"`
	NewState    string `csv:"new_state"`
	Hops        int    `csv:"hops"`
	AgeTicks    uint64 `csv:"age_ticks"`
	Retries     int    `csv:"retries"`

	// Topology events.
	Edges      int `csv:"edges"`
	Components int `csv:"components"`
}

// NewMSTRebuiltEvent records a spanning forest recompute.
func NewMSTRebuiltEvent(tick uint64, edges, components int) Event {
	return Event{
		Kind:       EventMSTRebuilt,
		Tick:       tick,
		Edges:      edges,
		Components: components,
	}
}

// NewPacketGeneratedEvent records a packet entering the system.
func NewPacketGeneratedEvent(tick uint64, packetID, source, destination string) Event {
	return Event{
		Kind:        EventPacketGenerated,
		Tick:        tick,
		PacketID:    packetID,
		Source:      source,
		Destination: destination,
		NewState:    "generated",
	}
}

// NewPacketStrandedEvent records a packet losing its path.
func NewPacketStrandedEvent(tick uint64, packetID, source, destination, priorState string, retries int) Event {
	return Event{
		Kind:        EventPacketStranded,
		Tick:        tick,
		PacketID:    packetID,
		Source:      source,
		Destination: destination,
		PriorState:  priorState,
		NewState:    "stranded",
		Retries:     retries,
	}
}

// NewPacketReroutedEvent records a stranded packet resuming transit on
// a fresh path of the given hop count.
func NewPacketReroutedEvent(tick uint64, packetID, source, destination string, hops int) Event {
	return Event{
		Kind:        EventPacketRerouted,
		Tick:        tick,
		PacketID:    packetID,
		Source:      source,
		Destination: destination,
		PriorState:  "stranded",
		NewState:    "in-transit",
		Hops:        hops,
	}
}

// NewPacketArrivedEvent records a delivery, with the hops traversed and
// the packet's age in ticks.
func NewPacketArrivedEvent(tick uint64, packetID, source, destination string, hops int, ageTicks uint64) Event {
	return Event{
		Kind:        EventPacketArrived,
		Tick:        tick,
		PacketID:    packetID,
		Source:      source,
		Destination: destination,
		PriorState:  "in-transit",
		NewState:    "arrived",
		Hops:        hops,
		AgeTicks:    ageTicks,
	}
}

// NewPacketDroppedEvent records the terminal drop of a packet that
// exhausted its reroute retries.
func NewPacketDroppedEvent(tick uint64, packetID, source, destination string, retries int, ageTicks uint64) Event {
	return Event{
		Kind:        EventPacketDropped,
		Tick:        tick,
		PacketID:    packetID,
		Source:      source,
		Destination: destination,
		PriorState:  "stranded",
		NewState:    "dropped",
		Retries:     retries,
		AgeTicks:    ageTicks,
	}
}
