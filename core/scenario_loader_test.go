// core/scenario_loader_test.go
package core

import (
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestLoadScenario_PopulatesSystem(t *testing.T) {
	jsonData := `
{
  "bodies": [
    {"id": "sun", "kind": "star", "radius": 20, "color": "yellow"},
    {"id": "planet-1", "kind": "planet", "radius": 5, "color": "#8B4513",
     "orbit": {"parent_id": "sun", "radius": 150, "angular_velocity": 0.01, "phase": 0}},
    {"id": "sat-1-1", "kind": "satellite", "radius": 3, "color": "gray",
     "orbit": {"parent_id": "planet-1", "radius": 30, "angular_velocity": -0.02, "phase": 3.141592653589793}},
    {"id": "relay-1", "kind": "sat", "radius": 3, "x": 40, "y": -25}
  ]
}
`

	sys := NewSystem()
	scenario, err := LoadScenario(sys, strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("LoadScenario returned error: %v", err)
	}

	if len(scenario.SunIDs) != 1 || len(scenario.PlanetIDs) != 1 || len(scenario.SatelliteIDs) != 2 {
		t.Fatalf("summary = %+v, want 1 sun, 1 planet, 2 satellites", scenario)
	}

	planet := sys.GetBody("planet-1")
	if planet == nil {
		t.Fatal("expected planet-1 in the system")
	}
	if planet.Color != "#8B4513" {
		t.Errorf("planet-1 color = %q, want %q", planet.Color, "#8B4513")
	}
	// Phase zero puts the planet on the positive x axis.
	if !almostEqual(planet.Position.X, 150) || !almostEqual(planet.Position.Y, 0) {
		t.Errorf("planet-1 at (%v, %v), want (150, 0)", planet.Position.X, planet.Position.Y)
	}

	sat := sys.GetBody("sat-1-1")
	if sat == nil {
		t.Fatal("expected sat-1-1 in the system")
	}
	// Phase pi places the satellite on the far side of its planet.
	if !almostEqual(sat.Position.X, 120) || !almostEqual(sat.Position.Y, 0) {
		t.Errorf("sat-1-1 at (%v, %v), want (120, 0)", sat.Position.X, sat.Position.Y)
	}

	relay := sys.GetBody("relay-1")
	if relay == nil {
		t.Fatal("expected relay-1 in the system")
	}
	if relay.Position.X != 40 || relay.Position.Y != -25 {
		t.Errorf("relay-1 at (%v, %v), want (40, -25)", relay.Position.X, relay.Position.Y)
	}
	if len(sys.GetSatellites()) != 2 {
		t.Errorf("system has %d satellites, want 2", len(sys.GetSatellites()))
	}
}

func TestLoadScenario_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"malformed json", `{"bodies": [`},
		{"empty id", `{"bodies": [{"id": "", "kind": "sun", "radius": 20}]}`},
		{"unknown kind", `{"bodies": [{"id": "x", "kind": "asteroid", "radius": 1}]}`},
		{"child before parent", `{"bodies": [
			{"id": "p1", "kind": "planet", "radius": 5,
			 "orbit": {"parent_id": "sun", "radius": 100, "angular_velocity": 0.01}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadScenario(NewSystem(), strings.NewReader(tc.json)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := LoadScenario(nil, strings.NewReader(`{}`)); err == nil {
		t.Fatal("expected an error for a nil system")
	}
}

func testLayoutSpec() LayoutSpec {
	return LayoutSpec{
		AU:                      150,
		SunRadius:               20,
		SunColor:                "yellow",
		PlanetOrbitRadiiAU:      []float64{1.0, 2.0},
		PlanetAngularVelocities: []float64{0.01, 0.02},
		PlanetRadiusBase:        5,
		PlanetRadiusJitter:      1,
		PlanetColors:            []string{"#8B4513", "#FFA500"},
		SatellitesPerPlanet:     2,
		SatelliteRadius:         3,
		SatelliteColor:          "gray",
		SatelliteOrbitFactor:    0.2,
		SatelliteSpeedFactor:    2.0,
	}
}

func TestGenerateSystem_LayoutFollowsSpec(t *testing.T) {
	sys, scenario, err := GenerateSystem(testLayoutSpec(), rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("GenerateSystem: %v", err)
	}

	if len(scenario.SunIDs) != 1 || len(scenario.PlanetIDs) != 2 || len(scenario.SatelliteIDs) != 4 {
		t.Fatalf("summary = %+v, want 1 sun, 2 planets, 4 satellites", scenario)
	}
	if len(sys.GetAllBodies()) != 7 {
		t.Fatalf("system has %d bodies, want 7", len(sys.GetAllBodies()))
	}

	sun := sys.GetBody("sun")
	if sun == nil || sun.Radius != 20 || sun.Position.X != 0 || sun.Position.Y != 0 {
		t.Fatalf("sun = %+v, want radius 20 at the origin", sun)
	}

	wantOrbits := []float64{150, 300}
	for i, id := range scenario.PlanetIDs {
		p := sys.GetBody(id)
		if p == nil {
			t.Fatalf("missing %s", id)
		}
		if p.Radius < 4 || p.Radius > 6 {
			t.Errorf("%s radius = %v, want within 5±1", id, p.Radius)
		}
		orbit, ok := p.Motion.(*CircularOrbit)
		if !ok {
			t.Fatalf("%s does not orbit", id)
		}
		if !almostEqual(orbit.Radius, wantOrbits[i]) {
			t.Errorf("%s orbit radius = %v, want %v", id, orbit.Radius, wantOrbits[i])
		}
		// The sun sits at the origin, so the orbit radius is also the
		// distance from it.
		if dist := p.Position.DistanceTo(Vec2{}); !almostEqual(dist, wantOrbits[i]) {
			t.Errorf("%s is %v from the sun, want %v", id, dist, wantOrbits[i])
		}
	}

	for _, id := range scenario.SatelliteIDs {
		s := sys.GetBody(id)
		if s == nil {
			t.Fatalf("missing %s", id)
		}
		orbit, ok := s.Motion.(*CircularOrbit)
		if !ok {
			t.Fatalf("%s does not orbit", id)
		}
		planet := sys.GetBody(s.ParentID)
		if planet == nil {
			t.Fatalf("%s has no parent", id)
		}
		pOrbit := planet.Motion.(*CircularOrbit)
		if !almostEqual(orbit.Radius, pOrbit.Radius*0.2) {
			t.Errorf("%s orbit radius = %v, want %v", id, orbit.Radius, pOrbit.Radius*0.2)
		}
		if !almostEqual(math.Abs(orbit.AngularVelocity), math.Abs(pOrbit.AngularVelocity)*2) {
			t.Errorf("%s angular velocity = %v, want twice the planet's %v",
				id, orbit.AngularVelocity, pOrbit.AngularVelocity)
		}
		if dist := s.Position.DistanceTo(planet.Position); !almostEqual(dist, orbit.Radius) {
			t.Errorf("%s is %v from %s, want %v", id, dist, s.ParentID, orbit.Radius)
		}
	}
}

func TestGenerateSystem_DeterministicForSeed(t *testing.T) {
	positions := func(seed int64) map[string]Vec2 {
		sys, _, err := GenerateSystem(testLayoutSpec(), rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("GenerateSystem: %v", err)
		}
		out := make(map[string]Vec2)
		for _, b := range sys.GetAllBodies() {
			out[b.ID] = b.Position
		}
		return out
	}

	a := positions(42)
	b := positions(42)
	if len(a) != len(b) {
		t.Fatalf("runs produced %d and %d bodies", len(a), len(b))
	}
	for id, pos := range a {
		if b[id] != pos {
			t.Fatalf("%s at %v in one run, %v in the other", id, pos, b[id])
		}
	}
}

func TestGenerateSystem_RejectsMismatchedLists(t *testing.T) {
	spec := testLayoutSpec()
	spec.PlanetAngularVelocities = []float64{0.01}
	if _, _, err := GenerateSystem(spec, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected an error for mismatched orbit lists")
	}

	if _, _, err := GenerateSystem(testLayoutSpec(), nil); err == nil {
		t.Fatal("expected an error for a nil rng")
	}
}
