// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"

	"github.com/signalsfoundry/solarmesh-simulator/model"
)

// Scenario is a small summary of what was loaded or generated. It's
// mainly useful for logging from main().
type Scenario struct {
	SunIDs       []string
	PlanetIDs    []string
	SatelliteIDs []string
}

// internal JSON shapes, kept unexported so we're free to evolve them.
type scenarioJSON struct {
	Bodies []bodyJSON `json:"bodies"`
}

type bodyJSON struct {
	ID     string     `json:"id"`
	Kind   string     `json:"kind"`
	Radius float64    `json:"radius"`
	Color  string     `json:"color"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Orbit  *orbitJSON `json:"orbit"`
}

type orbitJSON struct {
	ParentID        string  `json:"parent_id"`
	Radius          float64 `json:"radius"`
	AngularVelocity float64 `json:"angular_velocity"`
	Phase           float64 `json:"phase"`
}

// LoadScenario reads a JSON scenario from r and populates sys with its
// bodies, in file order. Parents must appear before their children.
//
// It fails on JSON and structural errors itself; semantic problems such
// as duplicate IDs or missing parents surface as AddBody errors, so the
// loader does not re-validate what the system already enforces.
func LoadScenario(sys *System, r io.Reader) (*Scenario, error) {
	if sys == nil {
		return nil, fmt.Errorf("LoadScenario: sys is nil")
	}

	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	result := &Scenario{}
	for _, jb := range payload.Bodies {
		if jb.ID == "" {
			return nil, fmt.Errorf("LoadScenario: body with empty id")
		}
		kind, err := kindFromString(jb.Kind)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: body %q: %w", jb.ID, err)
		}

		def := &model.BodyDefinition{
			ID:     jb.ID,
			Kind:   kind,
			Radius: jb.Radius,
			X:      jb.X,
			Y:      jb.Y,
			Color:  jb.Color,
		}
		if jb.Orbit != nil {
			def.Orbit = &model.OrbitSpec{
				ParentID:        jb.Orbit.ParentID,
				Radius:          jb.Orbit.Radius,
				AngularVelocity: jb.Orbit.AngularVelocity,
				Phase:           jb.Orbit.Phase,
			}
		}
		if err := sys.AddBody(def); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}

		switch kind {
		case model.KindSun:
			result.SunIDs = append(result.SunIDs, jb.ID)
		case model.KindPlanet:
			result.PlanetIDs = append(result.PlanetIDs, jb.ID)
		case model.KindSatellite:
			result.SatelliteIDs = append(result.SatelliteIDs, jb.ID)
		}
	}
	return result, nil
}

// kindFromString maps the JSON "kind" string to our model constants.
// A few synonyms are accepted, but an unknown kind is an error: kind
// decides whether a body obstructs or participates in the network, so
// guessing here would silently change the topology.
func kindFromString(s string) (model.BodyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "star":
		return model.KindSun, nil
	case "planet":
		return model.KindPlanet, nil
	case "satellite", "sat":
		return model.KindSatellite, nil
	default:
		return "", fmt.Errorf("unknown body kind %q", s)
	}
}

// LayoutSpec carries the parameters for procedural system generation.
// It mirrors the layout section of the config file; binaries translate
// between the two.
type LayoutSpec struct {
	AU                      float64
	SunRadius               float64
	SunColor                string
	PlanetOrbitRadiiAU      []float64
	PlanetAngularVelocities []float64
	PlanetRadiusBase        float64
	PlanetRadiusJitter      float64
	PlanetColors            []string
	SatellitesPerPlanet     int
	SatelliteRadius         float64
	SatelliteColor          string
	SatelliteOrbitFactor    float64
	SatelliteSpeedFactor    float64
}

// GenerateSystem builds a randomized solar system from spec: a sun at
// the origin, one planet per configured orbit and a ring of satellites
// around each planet. Randomness covers planet radii, every initial
// phase and each satellite's orbital direction; all draws come from rng
// in a fixed order, so one seed reproduces one system.
func GenerateSystem(spec LayoutSpec, rng *rand.Rand) (*System, *Scenario, error) {
	if rng == nil {
		return nil, nil, fmt.Errorf("GenerateSystem: rng is nil")
	}
	if len(spec.PlanetOrbitRadiiAU) != len(spec.PlanetAngularVelocities) {
		return nil, nil, fmt.Errorf("GenerateSystem: %d orbit radii but %d angular velocities",
			len(spec.PlanetOrbitRadiiAU), len(spec.PlanetAngularVelocities))
	}

	sys := NewSystem()
	result := &Scenario{}

	sun := &model.BodyDefinition{
		ID:     "sun",
		Kind:   model.KindSun,
		Radius: spec.SunRadius,
		Color:  spec.SunColor,
	}
	if err := sys.AddBody(sun); err != nil {
		return nil, nil, fmt.Errorf("GenerateSystem: %w", err)
	}
	result.SunIDs = append(result.SunIDs, sun.ID)

	for i, au := range spec.PlanetOrbitRadiiAU {
		planetID := fmt.Sprintf("planet-%d", i+1)
		radius := spec.PlanetRadiusBase + spec.PlanetRadiusJitter*(2*rng.Float64()-1)
		color := ""
		if len(spec.PlanetColors) > 0 {
			color = spec.PlanetColors[i%len(spec.PlanetColors)]
		}
		omega := spec.PlanetAngularVelocities[i]
		orbitRadius := au * spec.AU

		planet := &model.BodyDefinition{
			ID:     planetID,
			Kind:   model.KindPlanet,
			Radius: radius,
			Color:  color,
			Orbit: &model.OrbitSpec{
				ParentID:        sun.ID,
				Radius:          orbitRadius,
				AngularVelocity: omega,
				Phase:           rng.Float64() * 2 * math.Pi,
			},
		}
		if err := sys.AddBody(planet); err != nil {
			return nil, nil, fmt.Errorf("GenerateSystem: %w", err)
		}
		result.PlanetIDs = append(result.PlanetIDs, planetID)

		for j := 0; j < spec.SatellitesPerPlanet; j++ {
			satID := fmt.Sprintf("sat-%d-%d", i+1, j+1)
			direction := -1.0
			if rng.Float64() > 0.5 {
				direction = 1.0
			}
			sat := &model.BodyDefinition{
				ID:     satID,
				Kind:   model.KindSatellite,
				Radius: spec.SatelliteRadius,
				Color:  spec.SatelliteColor,
				Orbit: &model.OrbitSpec{
					ParentID:        planetID,
					Radius:          orbitRadius * spec.SatelliteOrbitFactor,
					AngularVelocity: omega * spec.SatelliteSpeedFactor * direction,
					Phase:           rng.Float64() * 2 * math.Pi,
				},
			}
			if err := sys.AddBody(sat); err != nil {
				return nil, nil, fmt.Errorf("GenerateSystem: %w", err)
			}
			result.SatelliteIDs = append(result.SatelliteIDs, satID)
		}
	}
	return sys, result, nil
}
