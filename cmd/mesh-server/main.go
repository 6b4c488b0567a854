package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/solarmesh-simulator/config"
	"github.com/signalsfoundry/solarmesh-simulator/core"
	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
	"github.com/signalsfoundry/solarmesh-simulator/internal/mesh"
	"github.com/signalsfoundry/solarmesh-simulator/internal/observability"
	"github.com/signalsfoundry/solarmesh-simulator/telemetry"
	"github.com/signalsfoundry/solarmesh-simulator/timectrl"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP address the mesh server listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	configPath := flag.String("config", "", "Path to a YAML config file (embedded defaults when empty)")
	scenarioPath := flag.String("scenario", "", "Path to a JSON scenario file (generated layout when empty)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))

	var (
		sys *core.System
		scn *core.Scenario
	)
	if *scenarioPath != "" {
		sys = core.NewSystem()
		f, err := os.Open(*scenarioPath)
		if err != nil {
			log.Error(ctx, "failed to open scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		scn, err = core.LoadScenario(sys, f)
		f.Close()
		if err != nil {
			log.Error(ctx, "failed to load scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		sys, scn, err = core.GenerateSystem(layoutSpec(cfg), rng)
		if err != nil {
			log.Error(ctx, "failed to generate system", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	log.Info(ctx, "system ready",
		logging.Int("suns", len(scn.SunIDs)),
		logging.Int("planets", len(scn.PlanetIDs)),
		logging.Int("satellites", len(scn.SatelliteIDs)),
	)

	async := telemetry.NewAsyncSink(telemetry.NewLogSink(log), 4096)

	eng, err := core.NewEngine(sys, engineConfig(cfg), log,
		core.WithSink(telemetry.MultiSink{collector, async}),
		core.WithRand(rng),
		core.WithMetricsRecorder(collector),
	)
	if err != nil {
		log.Error(ctx, "failed to build engine", logging.String("error", err.Error()))
		os.Exit(1)
	}

	// The engine ticks in real time; pausing stops the clock without
	// stopping the frame stream.
	tc := timectrl.NewTimeController(cfg.Derived.TickDuration, timectrl.RealTime)
	tc.AddListener(func(step uint64) {
		if eng.Paused() {
			return
		}
		if err := eng.Tick(); err != nil {
			collector.RecordAbort()
			log.Warn(ctx, "tick failed", logging.String("error", err.Error()))
		}
	})

	srv := mesh.New(eng, cfg.Derived.TickDuration, log)
	handler := collector.Middleware(
		mesh.RequestIDMiddleware(log)(
			mesh.TracingMiddleware(srv.Handler()),
		),
	)

	httpSrv := &http.Server{
		Addr:    *addr,
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := tc.Start(stopCtx, 0)

	log.Info(ctx, "starting mesh server", logging.String("addr", *addr))
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "mesh server exited", logging.String("error", err.Error()))
		}
	}()

	<-stopCtx.Done()

	log.Info(ctx, "shutting down mesh server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	<-done
	async.Close()
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
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
