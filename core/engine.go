package core

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
	"github.com/signalsfoundry/solarmesh-simulator/telemetry"
)

// EngineConfig carries the tunable parameters of a simulation run.
type EngineConfig struct {
	// DT is the base timestep in seconds of simulated time per tick.
	DT float64

	// SpeedMultipliers scale DT. The active multiplier is selected by
	// index; CycleSpeed steps through the list in order.
	SpeedMultipliers  []float64
	InitialSpeedIndex int

	// RecomputeTicks is the spanning-forest rebuild cadence. 1 rebuilds
	// every tick. The visibility graph is rebuilt every tick regardless.
	RecomputeTicks uint64

	PacketSpeed           float64
	GenerationProbability float64
	MaxRouteRetries       int

	// Seed initializes the engine's random source when none is injected
	// with WithRand.
	Seed int64
}

// MetricsRecorder receives one topology sample per completed tick along
// with the wall time the tick took. A nil recorder disables recording.
type MetricsRecorder interface {
	RecordTick(sample telemetry.TopologySample, elapsed time.Duration)
}

// Engine advances the simulation one tick at a time: it moves every body,
// rebuilds the visibility graph, recomputes the spanning forest on its
// cadence, steps all packets and publishes an immutable snapshot of the
// result. Engine methods are safe for concurrent use, but Tick itself is
// meant to be driven by a single runner.
type Engine struct {
	mu sync.RWMutex

	cfg     EngineConfig
	sys     *System
	log     logging.Logger
	sink    telemetry.Sink
	builder GraphBuilder
	rng     *rand.Rand
	packets *PacketManager
	metrics MetricsRecorder

	tick     uint64
	simTime  float64
	speedIdx int
	paused   bool

	graph    *VisibilityGraph
	forest   *SpanningForest
	snapshot *Snapshot

	abortedTicks uint64
}

// EngineOption customizes an Engine at construction time.
type EngineOption func(*Engine)

// WithSink routes simulation events to s.
func WithSink(s telemetry.Sink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithGraphBuilder replaces the default pairwise visibility builder.
func WithGraphBuilder(b GraphBuilder) EngineOption {
	return func(e *Engine) { e.builder = b }
}

// WithRand replaces the seeded random source. Useful when the caller
// wants scenario generation and packet traffic to share one stream.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) { e.rng = r }
}

// WithMetricsRecorder attaches a per-tick metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine validates cfg, wires the packet manager and computes the
// tick-zero topology so that Snapshot never returns nil.
func NewEngine(sys *System, cfg EngineConfig, log logging.Logger, opts ...EngineOption) (*Engine, error) {
	if sys == nil {
		return nil, fmt.Errorf("engine: nil system")
	}
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("engine: timestep must be positive, got %v", cfg.DT)
	}
	if len(cfg.SpeedMultipliers) == 0 {
		cfg.SpeedMultipliers = []float64{1.0}
	}
	if cfg.InitialSpeedIndex < 0 || cfg.InitialSpeedIndex >= len(cfg.SpeedMultipliers) {
		return nil, fmt.Errorf("engine: speed index %d out of range", cfg.InitialSpeedIndex)
	}
	if cfg.RecomputeTicks == 0 {
		cfg.RecomputeTicks = 1
	}
	if cfg.PacketSpeed <= 0 {
		return nil, fmt.Errorf("engine: packet speed must be positive, got %v", cfg.PacketSpeed)
	}
	if log == nil {
		log = logging.Noop()
	}

	e := &Engine{
		cfg:      cfg,
		sys:      sys,
		log:      log,
		builder:  PairwiseBuilder{},
		speedIdx: cfg.InitialSpeedIndex,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(cfg.Seed))
	}

	e.packets = NewPacketManager(e.rng, e.sink)
	e.packets.Speed = cfg.PacketSpeed
	e.packets.GenerationProbability = cfg.GenerationProbability
	e.packets.MaxRouteRetries = cfg.MaxRouteRetries

	graph, err := e.builder.Build(sys.GetSatellites(), sys.GetObstacles())
	if err != nil {
		return nil, fmt.Errorf("engine: initial visibility graph: %w", err)
	}
	e.graph = graph
	e.forest = BuildSpanningForest(graph)
	e.snapshot = buildSnapshot(0, 0, sys, e.graph, e.forest, nil)
	e.emit(telemetry.NewMSTRebuiltEvent(0, len(e.forest.Edges), e.forest.ComponentCount()))
	return e, nil
}

// Tick advances the simulation by one step. When a stage fails the
// tick's results are discarded: the counter does not advance and the
// previous snapshot stays visible, so a runner can log the error and
// keep going.
func (e *Engine) Tick() error {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	tick := e.tick + 1
	dt := e.cfg.DT * e.cfg.SpeedMultipliers[e.speedIdx]

	if err := e.sys.UpdatePositions(dt); err != nil {
		e.abortedTicks++
		e.log.Error(context.Background(), "tick aborted",
			logging.Int("tick", int(tick)),
			logging.String("stage", "positions"),
			logging.String("error", err.Error()))
		return fmt.Errorf("tick %d: %w", tick, err)
	}

	graph, err := e.builder.Build(e.sys.GetSatellites(), e.sys.GetObstacles())
	if err != nil {
		e.abortedTicks++
		e.log.Error(context.Background(), "tick aborted",
			logging.Int("tick", int(tick)),
			logging.String("stage", "visibility"),
			logging.String("error", err.Error()))
		return fmt.Errorf("tick %d: %w", tick, err)
	}

	e.tick = tick
	e.graph = graph
	if tick%e.cfg.RecomputeTicks == 0 {
		e.forest = BuildSpanningForest(graph)
		e.emit(telemetry.NewMSTRebuiltEvent(tick, len(e.forest.Edges), e.forest.ComponentCount()))
	}
	e.packets.Tick(tick, e.sys, e.forest, dt)
	e.simTime += dt
	e.snapshot = buildSnapshot(tick, e.simTime, e.sys, e.graph, e.forest, e.packets.Packets())

	if e.metrics != nil {
		e.metrics.RecordTick(e.topologySampleLocked(), time.Since(start))
	}
	return nil
}

// Snapshot returns the most recent completed tick's state. The returned
// value is immutable and safe to retain.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// TopologySample summarizes the current topology for stats windows.
func (e *Engine) TopologySample() telemetry.TopologySample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.topologySampleLocked()
}

func (e *Engine) topologySampleLocked() telemetry.TopologySample {
	return telemetry.TopologySample{
		Satellites:   len(e.graph.Vertices),
		GraphEdges:   len(e.graph.Edges),
		ForestEdges:  len(e.forest.Edges),
		Components:   e.forest.ComponentCount(),
		Unreachable:  len(e.forest.Singletons()),
		ForestWeight: e.forest.TotalWeight(),
		InFlight:     e.packets.InFlight(),
	}
}

// Pause stops runners from advancing the simulation. Tick calls made
// anyway still advance; runners consult Paused before ticking.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	e.paused = true
	e.log.Info(context.Background(), "simulation paused", logging.Int("tick", int(e.tick)))
}

// Resume lifts a pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	e.paused = false
	e.log.Info(context.Background(), "simulation resumed", logging.Int("tick", int(e.tick)))
}

func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// SetSpeedIndex selects the active speed multiplier by index.
func (e *Engine) SetSpeedIndex(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.cfg.SpeedMultipliers) {
		return fmt.Errorf("engine: speed index %d out of range", i)
	}
	e.speedIdx = i
	e.log.Info(context.Background(), "speed changed",
		logging.Int("index", i),
		logging.Any("multiplier", e.cfg.SpeedMultipliers[i]))
	return nil
}

// CycleSpeed steps to the next multiplier, wrapping around, and returns
// the multiplier now in effect.
func (e *Engine) CycleSpeed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speedIdx = (e.speedIdx + 1) % len(e.cfg.SpeedMultipliers)
	m := e.cfg.SpeedMultipliers[e.speedIdx]
	e.log.Info(context.Background(), "speed changed",
		logging.Int("index", e.speedIdx),
		logging.Any("multiplier", m))
	return m
}

// Speed returns the multiplier currently in effect.
func (e *Engine) Speed() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.SpeedMultipliers[e.speedIdx]
}

func (e *Engine) SpeedIndex() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speedIdx
}

// CurrentTick returns the number of the last completed tick.
func (e *Engine) CurrentTick() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick
}

// SimTime returns the accumulated simulated seconds.
func (e *Engine) SimTime() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.simTime
}

// AbortedTicks counts Tick calls that failed and were discarded.
func (e *Engine) AbortedTicks() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.abortedTicks
}

func (e *Engine) emit(ev telemetry.Event) {
	if e.sink == nil {
		return
	}
	e.sink.Record(ev)
}
