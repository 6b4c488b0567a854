package core

import (
	"math"

	"github.com/signalsfoundry/solarmesh-simulator/model"
)

const twoPi = 2 * math.Pi

// MotionModel updates a body's position over one simulation step. dt is
// simulated seconds, already scaled by the engine's speed multiplier.
type MotionModel interface {
	Advance(b *Body, parentCenter Vec2, dt float64)
}

// Stationary leaves the body's position unchanged.
type Stationary struct{}

// Advance for a stationary body does nothing.
func (m *Stationary) Advance(b *Body, parentCenter Vec2, dt float64) {
	// no-op
}

// CircularOrbit moves a body on a circle of fixed radius around its
// parent's current centre. A negative angular velocity orbits clockwise.
type CircularOrbit struct {
	Radius          float64
	AngularVelocity float64
	Angle           float64
}

// NewCircularOrbit constructs an orbit model from a static orbit spec.
func NewCircularOrbit(spec model.OrbitSpec) *CircularOrbit {
	return &CircularOrbit{
		Radius:          spec.Radius,
		AngularVelocity: spec.AngularVelocity,
		Angle:           normalizeAngle(spec.Phase),
	}
}

// Advance rotates the body by angularVelocity*dt and recomputes its
// position from the parent's centre. The parent must be advanced first
// so children track the centre within the same step.
func (m *CircularOrbit) Advance(b *Body, parentCenter Vec2, dt float64) {
	m.Angle = normalizeAngle(m.Angle + m.AngularVelocity*dt)
	b.Position = Vec2{
		X: parentCenter.X + m.Radius*math.Cos(m.Angle),
		Y: parentCenter.Y + m.Radius*math.Sin(m.Angle),
	}
}

// NewMotionModel chooses an appropriate MotionModel for the body.
// Orbiting bodies get a circular orbit seeded from their spec, everything
// else stays where the scenario put it.
func NewMotionModel(def *model.BodyDefinition) MotionModel {
	if def.Orbits() {
		return NewCircularOrbit(*def.Orbit)
	}
	return &Stationary{}
}

// normalizeAngle wraps an angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}
