package model

// BodyKind classifies a celestial body.
type BodyKind string

const (
	KindSun       BodyKind = "sun"
	KindPlanet    BodyKind = "planet"
	KindSatellite BodyKind = "satellite"
)

// OrbitSpec describes simple circular motion around a parent body.
// Angular velocity is in radians per simulated second; a negative value
// orbits retrograde. Phase is the initial angle in radians.
type OrbitSpec struct {
	ParentID        string
	Radius          float64
	AngularVelocity float64
	Phase           float64
}

// BodyDefinition is the static description of a celestial body as loaded
// from a scenario. Runtime position lives in the core System; consumers
// obtain it by looking up the body there.
type BodyDefinition struct {
	ID     string
	Kind   BodyKind
	Radius float64

	// X and Y fix the body's position when it does not orbit, such as
	// the sun or a stationary relay. Ignored when Orbit is set.
	X, Y float64

	// Orbit is nil for bodies that stay put.
	Orbit *OrbitSpec

	// Color is a display hint for external renderers; the simulation
	// itself never interprets it.
	Color string
}

// Orbits reports whether the body moves at all.
func (b *BodyDefinition) Orbits() bool {
	return b.Orbit != nil && b.Orbit.Radius > 0
}
