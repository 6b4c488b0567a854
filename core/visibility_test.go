package core

import (
	"math"
	"reflect"
	"testing"

	"github.com/signalsfoundry/solarmesh-simulator/model"
)

func satAt(id string, x, y float64) *Body {
	return &Body{ID: id, Kind: model.KindSatellite, Position: Vec2{X: x, Y: y}}
}

func TestPairwiseBuilder_CompleteTriangle(t *testing.T) {
	// Three satellites, nothing in the way: every pair is visible.
	sats := []*Body{
		satAt("s1", 0, 0),
		satAt("s2", 3, 0),
		satAt("s3", 0, 4),
	}

	g, err := PairwiseBuilder{}.Build(sats, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(g.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d: %+v", len(g.Edges), g.Edges)
	}
	want := []Edge{
		{A: "s1", B: "s2", Weight: 3},
		{A: "s1", B: "s3", Weight: 4},
		{A: "s2", B: "s3", Weight: 5},
	}
	for i, e := range g.Edges {
		if e.A != want[i].A || e.B != want[i].B || !almostEqual(e.Weight, want[i].Weight) {
			t.Errorf("edge %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestPairwiseBuilder_BlockedPair(t *testing.T) {
	// A planet sits exactly between s1 and s2; s3 is off to the side
	// with a clear view of both.
	sats := []*Body{
		satAt("s1", -10, 0),
		satAt("s2", 10, 0),
		satAt("s3", 0, 20),
	}
	obstacles := []Disc{{BodyID: "p1", Center: Vec2{}, Radius: 3}}

	g, err := PairwiseBuilder{}.Build(sats, obstacles)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.HasEdge("s1", "s2") {
		t.Errorf("expected the planet to block s1-s2")
	}
	if !g.HasEdge("s1", "s3") || !g.HasEdge("s2", "s3") {
		t.Errorf("expected s3 to see both s1 and s2, edges: %+v", g.Edges)
	}
}

func TestPairwiseBuilder_OwnDiscDoesNotBlock(t *testing.T) {
	// A disc carrying an endpoint's own ID is skipped for that pair, so
	// a body's radius never cuts links that start at its centre. The
	// same disc still blocks pairs it is not part of.
	sats := []*Body{
		satAt("s1", 0, 0),
		satAt("s2", 10, 0),
		satAt("s3", 20, 0),
	}
	obstacles := []Disc{{BodyID: "s2", Center: Vec2{X: 10, Y: 0}, Radius: 2}}

	g, err := PairwiseBuilder{}.Build(sats, obstacles)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !g.HasEdge("s1", "s2") || !g.HasEdge("s2", "s3") {
		t.Errorf("expected s2's own disc not to block its links, edges: %+v", g.Edges)
	}
	if g.HasEdge("s1", "s3") {
		t.Errorf("expected s2's disc to block s1-s3, edges: %+v", g.Edges)
	}
}

func TestPairwiseBuilder_OrderIndependent(t *testing.T) {
	a := []*Body{satAt("s1", 0, 0), satAt("s2", 5, 1), satAt("s3", -3, 7)}
	b := []*Body{a[2], a[0], a[1]}

	ga, err := PairwiseBuilder{}.Build(a, nil)
	if err != nil {
		t.Fatalf("Build a: %v", err)
	}
	gb, err := PairwiseBuilder{}.Build(b, nil)
	if err != nil {
		t.Fatalf("Build b: %v", err)
	}

	if !reflect.DeepEqual(ga.Vertices, gb.Vertices) {
		t.Errorf("vertex order differs: %v vs %v", ga.Vertices, gb.Vertices)
	}
	if !reflect.DeepEqual(ga.Edges, gb.Edges) {
		t.Errorf("edge order differs: %+v vs %+v", ga.Edges, gb.Edges)
	}
}

func TestPairwiseBuilder_NonFinitePosition(t *testing.T) {
	sats := []*Body{
		satAt("s1", 0, 0),
		satAt("s2", math.NaN(), 0),
	}

	if _, err := (PairwiseBuilder{}).Build(sats, nil); err == nil {
		t.Fatalf("expected an error for a non-finite satellite position")
	}
}

func TestVisibilityGraph_EdgeWeight(t *testing.T) {
	g, err := PairwiseBuilder{}.Build([]*Body{satAt("s1", 0, 0), satAt("s2", 6, 8)}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	w, ok := g.EdgeWeight("s2", "s1")
	if !ok || !almostEqual(w, 10) {
		t.Errorf("EdgeWeight(s2, s1) = %v, %v; want 10, true", w, ok)
	}
	if _, ok := g.EdgeWeight("s1", "s9"); ok {
		t.Errorf("expected no edge to an unknown vertex")
	}
}
