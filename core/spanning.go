package core

import "sort"

// unionFind is a disjoint-set over vertex indices with union by size
// and path halving.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union merges the sets holding a and b and reports whether they were
// previously disjoint.
func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}

// SpanningForest is the minimum spanning forest of a visibility graph:
// one minimal-weight tree per connected component. It is immutable once
// built; the engine swaps in a fresh forest on every recompute.
type SpanningForest struct {
	Edges []Edge

	adj       map[string][]string
	edgeSet   map[[2]string]struct{}
	component map[string]int
	compCount int
}

// BuildSpanningForest runs Kruskal's algorithm over the graph. The
// candidate edges are ordered by (weight, A, B), so equal-weight ties
// always break the same way and identical graphs yield byte-identical
// forests.
func BuildSpanningForest(g *VisibilityGraph) *SpanningForest {
	idx := make(map[string]int, len(g.Vertices))
	for i, v := range g.Vertices {
		idx[v] = i
	}

	candidates := make([]Edge, len(g.Edges))
	copy(candidates, g.Edges)
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Weight != b.Weight {
			return a.Weight < b.Weight
		}
		if a.A != b.A {
			return a.A < b.A
		}
		return a.B < b.B
	})

	f := &SpanningForest{
		adj:       make(map[string][]string, len(g.Vertices)),
		edgeSet:   make(map[[2]string]struct{}),
		component: make(map[string]int, len(g.Vertices)),
	}
	uf := newUnionFind(len(g.Vertices))
	for _, e := range candidates {
		if !uf.union(idx[e.A], idx[e.B]) {
			continue
		}
		f.Edges = append(f.Edges, e)
		f.edgeSet[[2]string{e.A, e.B}] = struct{}{}
		f.adj[e.A] = append(f.adj[e.A], e.B)
		f.adj[e.B] = append(f.adj[e.B], e.A)
	}

	// Present edges and neighbour lists in endpoint order regardless of
	// the weight order they were accepted in.
	sort.Slice(f.Edges, func(i, j int) bool {
		if f.Edges[i].A != f.Edges[j].A {
			return f.Edges[i].A < f.Edges[j].A
		}
		return f.Edges[i].B < f.Edges[j].B
	})
	for _, ns := range f.adj {
		sort.Strings(ns)
	}

	// Component labels are numbered by first appearance in sorted
	// vertex order.
	for _, v := range g.Vertices {
		root := uf.find(idx[v])
		rootID := g.Vertices[root]
		if _, ok := f.component[rootID]; !ok {
			f.component[rootID] = f.compCount
			f.compCount++
		}
		f.component[v] = f.component[rootID]
	}

	return f
}

// HasEdge reports whether the forest contains the tree edge a-b.
// Argument order does not matter.
func (f *SpanningForest) HasEdge(a, b string) bool {
	if b < a {
		a, b = b, a
	}
	_, ok := f.edgeSet[[2]string{a, b}]
	return ok
}

// Connected reports whether two satellites are in the same tree.
// Unknown vertices are connected to nothing.
func (f *SpanningForest) Connected(a, b string) bool {
	ca, okA := f.component[a]
	cb, okB := f.component[b]
	return okA && okB && ca == cb
}

// Neighbors returns the tree neighbours of a satellite in sorted order.
// The returned slice is shared; callers must not modify it.
func (f *SpanningForest) Neighbors(id string) []string {
	return f.adj[id]
}

// ComponentCount returns the number of trees in the forest.
func (f *SpanningForest) ComponentCount() int {
	return f.compCount
}

// Components returns the vertex sets of each tree: vertices sorted
// within a component, components ordered by their lowest vertex.
func (f *SpanningForest) Components() [][]string {
	out := make([][]string, f.compCount)
	ids := make([]string, 0, len(f.component))
	for id := range f.component {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := f.component[id]
		out[c] = append(out[c], id)
	}
	return out
}

// Singletons returns the satellites that have no tree edges at all, in
// sorted order. These are the unreachable vertices of the tick.
func (f *SpanningForest) Singletons() []string {
	var out []string
	for id := range f.component {
		if len(f.adj[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// TotalWeight returns the summed weight of all tree edges.
func (f *SpanningForest) TotalWeight() float64 {
	total := 0.0
	for _, e := range f.Edges {
		total += e.Weight
	}
	return total
}
