package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/solarmesh-simulator/model"
)

var (
	ErrDuplicateBody = errors.New("body already exists")
	ErrBadRadius     = errors.New("negative body radius")
	ErrUnknownParent = errors.New("unknown parent body")
	ErrBadOrbit      = errors.New("invalid orbit")
)

// Body is the runtime state of a celestial body: its static definition
// fields plus the current position and the motion model driving it.
type Body struct {
	ID       string
	Kind     model.BodyKind
	Radius   float64
	ParentID string
	Color    string
	Position Vec2
	Motion   MotionModel
}

// System holds every body in the simulated solar system.
//
// NOTE: the store is concurrency-safe via an internal RWMutex so the
// snapshot server can read while the engine thread writes, as long as
// all access goes through these methods.
type System struct {
	mu sync.RWMutex

	bodies map[string]*Body
	order  []string // insertion order; parents always precede children
}

// NewSystem creates an empty solar system.
func NewSystem() *System {
	return &System{
		bodies: make(map[string]*Body),
	}
}

// AddBody validates a body definition and inserts its runtime state.
// Parents must be added before their children, which also rules out
// cycles in the parent chain. All validation failures here are fatal
// scenario errors; nothing repairs them at runtime.
func (s *System) AddBody(def *model.BodyDefinition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("nil or empty body definition")
	}
	if def.Radius < 0 {
		return fmt.Errorf("%w: %q has radius %v", ErrBadRadius, def.ID, def.Radius)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bodies[def.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateBody, def.ID)
	}

	var parent *Body
	if def.Orbit != nil {
		if def.Orbit.Radius <= 0 {
			return fmt.Errorf("%w: %q has orbit radius %v", ErrBadOrbit, def.ID, def.Orbit.Radius)
		}
		if def.Orbit.ParentID == def.ID {
			return fmt.Errorf("%w: %q orbits itself", ErrBadOrbit, def.ID)
		}
		p, ok := s.bodies[def.Orbit.ParentID]
		if !ok {
			return fmt.Errorf("%w: %q orbits %q", ErrUnknownParent, def.ID, def.Orbit.ParentID)
		}
		if !validParentKind(def.Kind, p.Kind) {
			return fmt.Errorf("%w: %s %q cannot orbit %s %q", ErrBadOrbit, def.Kind, def.ID, p.Kind, p.ID)
		}
		parent = p
	}

	b := &Body{
		ID:       def.ID,
		Kind:     def.Kind,
		Radius:   def.Radius,
		Color:    def.Color,
		Position: Vec2{X: def.X, Y: def.Y},
		Motion:   NewMotionModel(def),
	}
	if def.Orbit != nil {
		b.ParentID = def.Orbit.ParentID
	}

	// Place the body at its initial phase so the system is fully
	// positioned before the first tick. Stationary bodies keep the
	// position from the definition.
	var center Vec2
	if parent != nil {
		center = parent.Position
	}
	b.Motion.Advance(b, center, 0)

	s.bodies[b.ID] = b
	s.order = append(s.order, b.ID)
	return nil
}

// validParentKind encodes the sun → planet → satellite hierarchy.
func validParentKind(child, parent model.BodyKind) bool {
	switch child {
	case model.KindPlanet:
		return parent == model.KindSun
	case model.KindSatellite:
		return parent == model.KindPlanet
	default:
		return false
	}
}

// UpdatePositions advances every body through its motion model in
// parent-before-child order. dt is simulated seconds, already scaled by
// the engine's speed multiplier. A non-finite resulting position aborts
// the update and leaves the remaining bodies untouched.
func (s *System) UpdatePositions(dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		b := s.bodies[id]
		var center Vec2
		if b.ParentID != "" {
			center = s.bodies[b.ParentID].Position
		}
		b.Motion.Advance(b, center, dt)
		if !b.Position.IsFinite() {
			return fmt.Errorf("body %q moved to a non-finite position", b.ID)
		}
	}
	return nil
}

// GetBody returns a body by ID, or nil if not found.
func (s *System) GetBody(id string) *Body {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bodies[id]
}

// GetAllBodies returns every body sorted by ID.
func (s *System) GetAllBodies() []*Body {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Body, 0, len(s.bodies))
	for _, b := range s.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetSatellites returns the network-capable bodies sorted by ID.
func (s *System) GetSatellites() []*Body {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Body, 0)
	for _, b := range s.bodies {
		if b.Kind == model.KindSatellite {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetObstacles returns the opaque bodies (sun and planets) as discs at
// their current positions, in insertion order.
func (s *System) GetObstacles() []Disc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Disc, 0)
	for _, id := range s.order {
		b := s.bodies[id]
		if b.Kind == model.KindSatellite {
			continue
		}
		out = append(out, Disc{BodyID: b.ID, Center: b.Position, Radius: b.Radius})
	}
	return out
}
