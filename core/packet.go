package core

// PacketState identifies a packet's position in its lifecycle.
type PacketState string

const (
	// PacketGenerated is the initial state, before routing has been attempted.
	PacketGenerated PacketState = "generated"
	// PacketInTransit means the packet is moving along an assigned forest path.
	PacketInTransit PacketState = "in-transit"
	// PacketStranded means the packet has no usable path and awaits rerouting.
	PacketStranded PacketState = "stranded"
	// PacketArrived is terminal: the packet reached its destination.
	PacketArrived PacketState = "arrived"
	// PacketDropped is terminal: rerouting was exhausted and the packet discarded.
	PacketDropped PacketState = "dropped"
)

// Packet is a unit of data traveling between satellites along spanning
// forest paths.
type Packet struct {
	ID          string
	Source      string
	Destination string
	State       PacketState

	// Path is the assigned route as an ordered list of satellite IDs.
	// NextHop indexes the satellite currently being approached; the leg
	// in progress is Path[NextHop-1] to Path[NextHop].
	Path    []string
	NextHop int

	// Holder is the last satellite the packet visited. A stranded packet
	// rides along with its holder until it is rerouted or dropped.
	Holder   string
	Position Vec2

	GeneratedTick uint64
	StrandedTick  uint64
	Retries       int
	Hops          int
}
