// Package config provides configuration loading and validation for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulator configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Layout     LayoutConfig     `yaml:"layout"`
	Network    NetworkConfig    `yaml:"network"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds tick-loop parameters.
type SimulationConfig struct {
	DT                float64   `yaml:"dt"`   // Simulated seconds per tick
	Seed              int64     `yaml:"seed"` // Seeds layout jitter and packet generation
	SpeedMultipliers  []float64 `yaml:"speed_multipliers"`
	InitialSpeedIndex int       `yaml:"initial_speed_index"`
	MSTRecomputeTicks uint64    `yaml:"mst_recompute_ticks"` // Forest rebuild cadence in ticks
}

// LayoutConfig holds parameters for the generated solar system layout.
type LayoutConfig struct {
	AU                      float64   `yaml:"au"` // Simulation units per astronomical unit
	SunRadius               float64   `yaml:"sun_radius"`
	SunColor                string    `yaml:"sun_color"`
	PlanetOrbitRadiiAU      []float64 `yaml:"planet_orbit_radii_au"`
	PlanetAngularVelocities []float64 `yaml:"planet_angular_velocities"` // Radians per simulated second
	PlanetRadiusBase        float64   `yaml:"planet_radius_base"`
	PlanetRadiusJitter      float64   `yaml:"planet_radius_jitter"` // Uniform +/- variation on the base radius
	PlanetColors            []string  `yaml:"planet_colors"`
	SatellitesPerPlanet     int       `yaml:"satellites_per_planet"`
	SatelliteRadius         float64   `yaml:"satellite_radius"`
	SatelliteColor          string    `yaml:"satellite_color"`
	SatelliteOrbitFactor    float64   `yaml:"satellite_orbit_factor"` // Satellite orbit radius relative to its planet's orbit radius
	SatelliteSpeedFactor    float64   `yaml:"satellite_speed_factor"` // Satellite angular velocity relative to its planet's
}

// NetworkConfig holds packet-network parameters.
type NetworkConfig struct {
	PacketSpeed           float64 `yaml:"packet_speed"`           // Simulation units per simulated second
	GenerationProbability float64 `yaml:"generation_probability"` // Per satellite per tick
	MaxRouteRetries       int     `yaml:"max_route_retries"`      // Failed reroutes before a stranded packet is dropped
}

// TelemetryConfig holds telemetry output parameters.
type TelemetryConfig struct {
	StatsWindowTicks uint64 `yaml:"stats_window_ticks"`
	OutputDir        string `yaml:"output_dir"` // Empty disables CSV output
}

// LoggingConfig holds logger parameters.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // Empty logs to stdout
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	PlanetOrbitRadii []float64     // PlanetOrbitRadiiAU scaled by AU
	TickDuration     time.Duration // DT as a wall-clock duration for real-time pacing
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated;
// a config that fails validation is rejected here, before any tick runs.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the configuration for values the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Simulation.DT <= 0 {
		return fmt.Errorf("simulation.dt must be positive, got %v", c.Simulation.DT)
	}
	if len(c.Simulation.SpeedMultipliers) == 0 {
		return fmt.Errorf("simulation.speed_multipliers must not be empty")
	}
	for i, m := range c.Simulation.SpeedMultipliers {
		if m <= 0 {
			return fmt.Errorf("simulation.speed_multipliers[%d] must be positive, got %v", i, m)
		}
	}
	if c.Simulation.InitialSpeedIndex < 0 || c.Simulation.InitialSpeedIndex >= len(c.Simulation.SpeedMultipliers) {
		return fmt.Errorf("simulation.initial_speed_index %d out of range [0, %d)",
			c.Simulation.InitialSpeedIndex, len(c.Simulation.SpeedMultipliers))
	}
	if c.Simulation.MSTRecomputeTicks == 0 {
		return fmt.Errorf("simulation.mst_recompute_ticks must be at least 1")
	}

	if c.Layout.AU <= 0 {
		return fmt.Errorf("layout.au must be positive, got %v", c.Layout.AU)
	}
	if c.Layout.SunRadius <= 0 {
		return fmt.Errorf("layout.sun_radius must be positive, got %v", c.Layout.SunRadius)
	}
	if len(c.Layout.PlanetOrbitRadiiAU) != len(c.Layout.PlanetAngularVelocities) {
		return fmt.Errorf("layout.planet_orbit_radii_au (%d) and layout.planet_angular_velocities (%d) must have the same length",
			len(c.Layout.PlanetOrbitRadiiAU), len(c.Layout.PlanetAngularVelocities))
	}
	for i, r := range c.Layout.PlanetOrbitRadiiAU {
		if r <= 0 {
			return fmt.Errorf("layout.planet_orbit_radii_au[%d] must be positive, got %v", i, r)
		}
	}
	if c.Layout.PlanetRadiusBase <= 0 {
		return fmt.Errorf("layout.planet_radius_base must be positive, got %v", c.Layout.PlanetRadiusBase)
	}
	if c.Layout.PlanetRadiusJitter < 0 || c.Layout.PlanetRadiusJitter >= c.Layout.PlanetRadiusBase {
		return fmt.Errorf("layout.planet_radius_jitter must be in [0, planet_radius_base), got %v", c.Layout.PlanetRadiusJitter)
	}
	if c.Layout.SatellitesPerPlanet < 0 {
		return fmt.Errorf("layout.satellites_per_planet must not be negative, got %d", c.Layout.SatellitesPerPlanet)
	}
	if c.Layout.SatelliteRadius <= 0 {
		return fmt.Errorf("layout.satellite_radius must be positive, got %v", c.Layout.SatelliteRadius)
	}
	if c.Layout.SatelliteOrbitFactor <= 0 {
		return fmt.Errorf("layout.satellite_orbit_factor must be positive, got %v", c.Layout.SatelliteOrbitFactor)
	}
	if c.Layout.SatelliteSpeedFactor <= 0 {
		return fmt.Errorf("layout.satellite_speed_factor must be positive, got %v", c.Layout.SatelliteSpeedFactor)
	}

	if c.Network.PacketSpeed <= 0 {
		return fmt.Errorf("network.packet_speed must be positive, got %v", c.Network.PacketSpeed)
	}
	if c.Network.GenerationProbability < 0 || c.Network.GenerationProbability > 1 {
		return fmt.Errorf("network.generation_probability must be in [0, 1], got %v", c.Network.GenerationProbability)
	}
	if c.Network.MaxRouteRetries < 0 {
		return fmt.Errorf("network.max_route_retries must not be negative, got %d", c.Network.MaxRouteRetries)
	}

	if c.Telemetry.StatsWindowTicks == 0 {
		return fmt.Errorf("telemetry.stats_window_ticks must be at least 1")
	}

	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.PlanetOrbitRadii = make([]float64, len(c.Layout.PlanetOrbitRadiiAU))
	for i, r := range c.Layout.PlanetOrbitRadiiAU {
		c.Derived.PlanetOrbitRadii[i] = r * c.Layout.AU
	}
	c.Derived.TickDuration = time.Duration(c.Simulation.DT * float64(time.Second))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
