package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalsfoundry/solarmesh-simulator/config"
	"github.com/signalsfoundry/solarmesh-simulator/core"
	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
	"github.com/signalsfoundry/solarmesh-simulator/telemetry"
	"github.com/signalsfoundry/solarmesh-simulator/timectrl"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (embedded defaults when empty)")
	scenarioPath := flag.String("scenario", "", "path to a JSON scenario file (generated layout when empty)")
	ticks := flag.Uint64("ticks", 3750, "number of ticks to run")
	outDir := flag.String("out", "", "telemetry output directory (overrides the config)")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")

	flag.Parse()

	// ==== Config + logging ====

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *outDir != "" {
		cfg.Telemetry.OutputDir = *outDir
	}

	log, closeLog, err := logging.Open(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		panic(err)
	}
	defer closeLog()

	// ==== System construction ====

	// One seeded source drives layout jitter and packet traffic, so a
	// seed reproduces a whole run.
	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))

	var (
		sys *core.System
		scn *core.Scenario
	)
	if *scenarioPath != "" {
		sys = core.NewSystem()
		f, err := os.Open(*scenarioPath)
		if err != nil {
			panic(fmt.Errorf("failed to open scenario %q: %w", *scenarioPath, err))
		}
		scn, err = core.LoadScenario(sys, f)
		f.Close()
		if err != nil {
			panic(fmt.Errorf("failed to load scenario: %w", err))
		}
	} else {
		sys, scn, err = core.GenerateSystem(layoutSpec(cfg), rng)
		if err != nil {
			panic(fmt.Errorf("failed to generate system: %w", err))
		}
	}

	// Optional: one-liner so we know what was loaded.
	fmt.Printf("Loaded system: %d suns, %d planets, %d satellites\n",
		len(scn.SunIDs), len(scn.PlanetIDs), len(scn.SatelliteIDs))

	// ==== Telemetry ====

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks, cfg.Simulation.DT)
	recorder, err := telemetry.NewRecorder(cfg.Telemetry.OutputDir)
	if err != nil {
		panic(fmt.Errorf("failed to create telemetry recorder: %w", err))
	}
	if recorder != nil {
		if err := recorder.WriteConfig(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record config: %v\n", err)
		}
		fmt.Printf("Recording telemetry to %s\n", recorder.Dir())
	}

	async := telemetry.NewAsyncSink(telemetry.MultiSink{telemetry.NewLogSink(log), recorder}, 4096)
	sink := telemetry.MultiSink{collector, async}

	// ==== Engine ====

	eng, err := core.NewEngine(sys, engineConfig(cfg), log,
		core.WithSink(sink),
		core.WithRand(rng),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build engine: %w", err))
	}

	// ==== Time controller ====

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(cfg.Derived.TickDuration, mode)

	tc.AddListener(func(step uint64) {
		if err := eng.Tick(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			return
		}
		if collector.ShouldFlush(eng.CurrentTick()) {
			ws := collector.Flush(eng.CurrentTick(), eng.TopologySample())
			if recorder != nil {
				if err := recorder.WriteStats(ws); err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to write stats: %v\n", err)
				}
			}
			fmt.Printf("[tick %6d] sim=%8.2fs graph=%3d forest=%3d comps=%2d inflight=%3d delivery=%.2f\n",
				ws.WindowEndTick, ws.SimTimeSec, ws.GraphEdges, ws.ForestEdges,
				ws.Components, ws.InFlight, ws.DeliveryRate)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting simulation: ticks=%d, dt=%gs, mode=%v\n", *ticks, cfg.Simulation.DT, mode)
	done := tc.Start(ctx, *ticks)
	<-done

	// Flush whatever the last full window missed.
	if ws := collector.Flush(eng.CurrentTick(), eng.TopologySample()); ws.WindowEndTick > ws.WindowStartTick {
		if recorder != nil {
			if err := recorder.WriteStats(ws); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to write stats: %v\n", err)
			}
		}
	}

	async.Close()
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close recorder: %v\n", err)
		}
	}
	fmt.Println("Simulation complete.")
}

// layoutSpec maps the config's layout section onto the generator's
// spec. This stays local to main for now; the core package does not
// depend on config.
func layoutSpec(cfg *config.Config) core.LayoutSpec {
	return core.LayoutSpec{
		AU:                      cfg.Layout.AU,
		SunRadius:               cfg.Layout.SunRadius,
		SunColor:                cfg.Layout.SunColor,
		PlanetOrbitRadiiAU:      cfg.Layout.PlanetOrbitRadiiAU,
		PlanetAngularVelocities: cfg.Layout.PlanetAngularVelocities,
		PlanetRadiusBase:        cfg.Layout.PlanetRadiusBase,
		PlanetRadiusJitter:      cfg.Layout.PlanetRadiusJitter,
		PlanetColors:            cfg.Layout.PlanetColors,
		SatellitesPerPlanet:     cfg.Layout.SatellitesPerPlanet,
		SatelliteRadius:         cfg.Layout.SatelliteRadius,
		SatelliteColor:          cfg.Layout.SatelliteColor,
		SatelliteOrbitFactor:    cfg.Layout.SatelliteOrbitFactor,
		SatelliteSpeedFactor:    cfg.Layout.SatelliteSpeedFactor,
	}
}

func engineConfig(cfg *config.Config) core.EngineConfig {
	return core.EngineConfig{
		DT:                    cfg.Simulation.DT,
		SpeedMultipliers:      cfg.Simulation.SpeedMultipliers,
		InitialSpeedIndex:     cfg.Simulation.InitialSpeedIndex,
		RecomputeTicks:        cfg.Simulation.MSTRecomputeTicks,
		PacketSpeed:           cfg.Network.PacketSpeed,
		GenerationProbability: cfg.Network.GenerationProbability,
		MaxRouteRetries:       cfg.Network.MaxRouteRetries,
		Seed:                  cfg.Simulation.Seed,
	}
}
