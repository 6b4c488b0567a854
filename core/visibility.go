package core

import (
	"fmt"
	"sort"
)

// Edge is an undirected visibility edge between two satellites,
// normalized so A sorts before B. Weight is the Euclidean distance at
// the instant the graph was built.
type Edge struct {
	A, B   string
	Weight float64
}

// VisibilityGraph is one tick's line-of-sight graph: which satellite
// pairs can currently see each other, and at what distance. Vertices
// and edges are kept in sorted order so identical inputs always produce
// identical graphs.
type VisibilityGraph struct {
	Vertices []string
	Edges    []Edge

	edgeSet map[[2]string]float64
}

// HasEdge reports whether the two satellites see each other. Argument
// order does not matter.
func (g *VisibilityGraph) HasEdge(a, b string) bool {
	_, ok := g.EdgeWeight(a, b)
	return ok
}

// EdgeWeight returns the distance between two visible satellites, or
// false if no edge connects them.
func (g *VisibilityGraph) EdgeWeight(a, b string) (float64, bool) {
	if b < a {
		a, b = b, a
	}
	w, ok := g.edgeSet[[2]string{a, b}]
	return w, ok
}

// GraphBuilder turns the current satellite set and obstacle discs into
// the tick's visibility graph. Implementations must emit vertices and
// edges in deterministic order; a spatial-index builder can be swapped
// in behind this interface without touching the engine.
type GraphBuilder interface {
	Build(sats []*Body, obstacles []Disc) (*VisibilityGraph, error)
}

// PairwiseBuilder is the straightforward O(S²·O) builder: every
// satellite pair is checked against every obstacle disc.
type PairwiseBuilder struct{}

// Build constructs the visibility graph for the given satellites. A
// non-finite satellite position aborts the build so the engine can keep
// the previous tick's topology.
func (PairwiseBuilder) Build(sats []*Body, obstacles []Disc) (*VisibilityGraph, error) {
	// Sort a copy so edge emission never depends on caller order.
	ordered := make([]*Body, len(sats))
	copy(ordered, sats)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	g := &VisibilityGraph{
		Vertices: make([]string, 0, len(ordered)),
		edgeSet:  make(map[[2]string]float64),
	}
	for _, s := range ordered {
		if !s.Position.IsFinite() {
			return nil, fmt.Errorf("satellite %q has a non-finite position", s.ID)
		}
		g.Vertices = append(g.Vertices, s.ID)
	}

	n := len(ordered)
	scratch := make([]Disc, 0, len(obstacles))
	for i := 0; i < n; i++ {
		sa := ordered[i]
		for j := i + 1; j < n; j++ {
			sb := ordered[j]
			// The endpoints' own discs never block their links.
			scratch = scratch[:0]
			for _, d := range obstacles {
				if d.BodyID == sa.ID || d.BodyID == sb.ID {
					continue
				}
				scratch = append(scratch, d)
			}
			if IsObstructed(sa.Position, sb.Position, scratch) {
				continue
			}
			w := sa.Position.DistanceTo(sb.Position)
			g.Edges = append(g.Edges, Edge{A: sa.ID, B: sb.ID, Weight: w})
			g.edgeSet[[2]string{sa.ID, sb.ID}] = w
		}
	}
	return g, nil
}
