package core

import "math"

// Vec2 is a position in the ecliptic plane, in world units.
type Vec2 struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Y*other.Y
}

// IsFinite reports whether both components are finite numbers.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Disc is the obstacle view of an opaque body: a filled circle in the
// ecliptic plane. Built fresh from the system each tick.
type Disc struct {
	BodyID string
	Center Vec2
	Radius float64
}

// SegmentIntersectsDisc checks whether the straight segment between p1 and
// p2 passes through the disc with the given centre and radius. Touching the
// rim counts as intersecting, as does either endpoint lying inside the disc.
func SegmentIntersectsDisc(p1, p2, center Vec2, radius float64) bool {
	r2 := radius * radius
	d1 := p1.Sub(center)
	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Degenerate case: same point. Intersects iff the point is
		// inside or on the disc.
		return d1.Dot(d1) <= r2
	}

	// Find the closest point on the segment to the disc centre.
	// t* minimises |d1 + t v|^2 over t ∈ ℝ.
	t := -d1.Dot(v) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := Vec2{
		X: d1.X + v.X*t,
		Y: d1.Y + v.Y*t,
	}

	// If the closest point lies inside or on the disc, the segment
	// intersects it.
	return closest.Dot(closest) <= r2
}

// IsObstructed reports whether any disc blocks the straight segment between
// p1 and p2. The answer is symmetric in p1 and p2.
func IsObstructed(p1, p2 Vec2, obstacles []Disc) bool {
	for _, d := range obstacles {
		if SegmentIntersectsDisc(p1, p2, d.Center, d.Radius) {
			return true
		}
	}
	return false
}
