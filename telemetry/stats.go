package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated network statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Topology sampled at window end.
	Satellites   int     `csv:"satellites"`
	GraphEdges   int     `csv:"graph_edges"`
	ForestEdges  int     `csv:"forest_edges"`
	Components   int     `csv:"components"`
	Unreachable  int     `csv:"unreachable"`
	ForestWeight float64 `csv:"forest_weight"`
	InFlight     int     `csv:"in_flight"`

	// Events during the window.
	Rebuilds     int     `csv:"mst_rebuilds"`
	Generated    int     `csv:"generated"`
	Arrived      int     `csv:"arrived"`
	Stranded     int     `csv:"stranded"`
	Rerouted     int     `csv:"rerouted"`
	Dropped      int     `csv:"dropped"`
	DeliveryRate float64 `csv:"delivery_rate"`

	// Delivery quality over packets that arrived in the window.
	DeliveryTicksMean float64 `csv:"delivery_ticks_mean"`
	DeliveryTicksStd  float64 `csv:"delivery_ticks_std"`
	DeliveryTicksP50  float64 `csv:"delivery_ticks_p50"`
	DeliveryTicksP90  float64 `csv:"delivery_ticks_p90"`
	HopsMean          float64 `csv:"hops_mean"`
}

// TopologySample is the caller-supplied view of the network at window
// end, for fields the event stream alone cannot provide.
type TopologySample struct {
	Satellites   int
	GraphEdges   int
	ForestEdges  int
	Components   int
	Unreachable  int
	ForestWeight float64
	InFlight     int
}

// Collector accumulates events within tick windows and produces
// WindowStats. It implements Sink; wire it ahead of any AsyncSink, it
// is not safe for concurrent use.
type Collector struct {
	windowTicks     uint64
	dt              float64
	windowStartTick uint64

	rebuilds  int
	generated int
	arrived   int
	stranded  int
	rerouted  int
	dropped   int

	deliveryTicks []float64
	hops          []float64
}

// NewCollector creates a stats collector.
// windowTicks: ticks per stats window. dt: simulated seconds per tick.
func NewCollector(windowTicks uint64, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks, dt: dt}
}

// Record folds one event into the current window.
func (c *Collector) Record(ev Event) {
	switch ev.Kind {
	case EventMSTRebuilt:
		c.rebuilds++
	case EventPacketGenerated:
		c.generated++
	case EventPacketArrived:
		c.arrived++
		c.deliveryTicks = append(c.deliveryTicks, float64(ev.AgeTicks))
		c.hops = append(c.hops, float64(ev.Hops))
	case EventPacketStranded:
		c.stranded++
	case EventPacketRerouted:
		c.rerouted++
	case EventPacketDropped:
		c.dropped++
	}
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces the window's stats and resets counters for the next
// window. The topology sample supplies the at-window-end gauges.
func (c *Collector) Flush(currentTick uint64, topo TopologySample) WindowStats {
	var rate float64
	if c.generated > 0 {
		rate = float64(c.arrived) / float64(c.generated)
	}

	mean, std, p50, p90 := deliverySummary(c.deliveryTicks)
	hopsMean := 0.0
	if len(c.hops) > 0 {
		hopsMean = stat.Mean(c.hops, nil)
	}

	ws := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Satellites:   topo.Satellites,
		GraphEdges:   topo.GraphEdges,
		ForestEdges:  topo.ForestEdges,
		Components:   topo.Components,
		Unreachable:  topo.Unreachable,
		ForestWeight: topo.ForestWeight,
		InFlight:     topo.InFlight,

		Rebuilds:     c.rebuilds,
		Generated:    c.generated,
		Arrived:      c.arrived,
		Stranded:     c.stranded,
		Rerouted:     c.rerouted,
		Dropped:      c.dropped,
		DeliveryRate: rate,

		DeliveryTicksMean: mean,
		DeliveryTicksStd:  std,
		DeliveryTicksP50:  p50,
		DeliveryTicksP90:  p90,
		HopsMean:          hopsMean,
	}

	c.windowStartTick = currentTick
	c.rebuilds = 0
	c.generated = 0
	c.arrived = 0
	c.stranded = 0
	c.rerouted = 0
	c.dropped = 0
	c.deliveryTicks = c.deliveryTicks[:0]
	c.hops = c.hops[:0]

	return ws
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 {
	return c.windowTicks
}

// deliverySummary computes mean, standard deviation and the 50th/90th
// empirical quantiles of the delivery times. Empty input yields zeros.
func deliverySummary(values []float64) (mean, std, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	if n > 1 {
		std = stat.StdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p50, p90
}
