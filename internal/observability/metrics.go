package observability

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/solarmesh-simulator/telemetry"
)

// SimCollector bundles Prometheus metrics for the simulation and its HTTP
// surface and provides helpers to wire them into servers.
type SimCollector struct {
	gatherer prometheus.Gatherer

	TicksTotal   prometheus.Counter
	TickAborts   prometheus.Counter
	TickDuration prometheus.Histogram
	PacketEvents *prometheus.CounterVec
	MSTRebuilds  prometheus.Counter

	Satellites      prometheus.Gauge
	GraphEdges      prometheus.Gauge
	ForestEdges     prometheus.Gauge
	Components      prometheus.Gauge
	UnreachableSats prometheus.Gauge
	ForestWeight    prometheus.Gauge
	PacketsInFlight prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of completed simulation ticks.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	aborts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_tick_aborts_total",
		Help: "Total number of ticks aborted by a build or motion failure.",
	}), "sim_tick_aborts_total")
	if err != nil {
		return nil, err
	}

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall-clock time spent computing one simulation tick.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	tickDuration, err = registerHistogram(reg, tickDuration, "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	packetEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_packet_events_total",
		Help: "Total number of packet lifecycle events, labeled by event kind.",
	}, []string{"event"})
	packetEvents, err = registerCounterVec(reg, packetEvents, "sim_packet_events_total")
	if err != nil {
		return nil, err
	}

	rebuilds, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_mst_rebuilds_total",
		Help: "Total number of spanning forest recomputations.",
	}), "sim_mst_rebuilds_total")
	if err != nil {
		return nil, err
	}

	satellites, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_satellites",
		Help: "Current number of satellites in the visibility graph.",
	}), "sim_satellites")
	if err != nil {
		return nil, err
	}
	graphEdges, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_graph_edges",
		Help: "Current number of line-of-sight edges in the visibility graph.",
	}), "sim_graph_edges")
	if err != nil {
		return nil, err
	}
	forestEdges, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_forest_edges",
		Help: "Current number of edges in the spanning forest.",
	}), "sim_forest_edges")
	if err != nil {
		return nil, err
	}
	components, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_forest_components",
		Help: "Current number of connected components in the spanning forest.",
	}), "sim_forest_components")
	if err != nil {
		return nil, err
	}
	unreachable, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_unreachable_satellites",
		Help: "Current number of satellites with no line of sight to any peer.",
	}), "sim_unreachable_satellites")
	if err != nil {
		return nil, err
	}
	forestWeight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_forest_weight",
		Help: "Total edge weight of the spanning forest.",
	}), "sim_forest_weight")
	if err != nil {
		return nil, err
	}
	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_packets_in_flight",
		Help: "Current number of live packets.",
	}), "sim_packets_in_flight")
	if err != nil {
		return nil, err
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by path, method, and status code.",
	}, []string{"path", "method", "code"})
	httpRequests, err = registerCounterVec(reg, httpRequests, "mesh_http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mesh_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds. Websocket upgrades report their connection lifetime.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"path", "method"})
	httpDurations, err = registerHistogramVec(reg, httpDurations, "mesh_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		TicksTotal:      ticks,
		TickAborts:      aborts,
		TickDuration:    tickDuration,
		PacketEvents:    packetEvents,
		MSTRebuilds:     rebuilds,
		Satellites:      satellites,
		GraphEdges:      graphEdges,
		ForestEdges:     forestEdges,
		Components:      components,
		UnreachableSats: unreachable,
		ForestWeight:    forestWeight,
		PacketsInFlight: inFlight,
		HTTPRequests:    httpRequests,
		HTTPDurations:   httpDurations,
	}, nil
}

// RecordTick satisfies the engine's MetricsRecorder interface so gauges
// track the topology tick by tick.
func (c *SimCollector) RecordTick(sample telemetry.TopologySample, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.TicksTotal != nil {
		c.TicksTotal.Inc()
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(elapsed.Seconds())
	}
	if c.Satellites != nil {
		c.Satellites.Set(float64(sample.Satellites))
	}
	if c.GraphEdges != nil {
		c.GraphEdges.Set(float64(sample.GraphEdges))
	}
	if c.ForestEdges != nil {
		c.ForestEdges.Set(float64(sample.ForestEdges))
	}
	if c.Components != nil {
		c.Components.Set(float64(sample.Components))
	}
	if c.UnreachableSats != nil {
		c.UnreachableSats.Set(float64(sample.Unreachable))
	}
	if c.ForestWeight != nil {
		c.ForestWeight.Set(sample.ForestWeight)
	}
	if c.PacketsInFlight != nil {
		c.PacketsInFlight.Set(float64(sample.InFlight))
	}
}

// RecordAbort counts a tick that failed before publishing a snapshot.
func (c *SimCollector) RecordAbort() {
	if c == nil {
		return
	}
	if c.TickAborts != nil {
		c.TickAborts.Inc()
	}
}

// Record satisfies the telemetry sink interface, so packet lifecycle
// counters are driven by the same event stream the log sinks consume.
func (c *SimCollector) Record(ev telemetry.Event) {
	if c == nil {
		return
	}
	switch ev.Kind {
	case telemetry.EventMSTRebuilt:
		if c.MSTRebuilds != nil {
			c.MSTRebuilds.Inc()
		}
	default:
		if c.PacketEvents != nil {
			c.PacketEvents.WithLabelValues(string(ev.Kind)).Inc()
		}
	}
}

// Middleware records request counts and durations for an HTTP handler.
func (c *SimCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		if c == nil {
			return
		}
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.code)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(r.URL.Path, r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// statusRecorder captures the response code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection while the
// middleware wrapper is in place.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, histogram prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return histogram, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
