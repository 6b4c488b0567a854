package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/solarmesh-simulator/telemetry"
)

func TestSimCollector_RecordTickDrivesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	sample := telemetry.TopologySample{
		Satellites:   8,
		GraphEdges:   12,
		ForestEdges:  7,
		Components:   1,
		Unreachable:  0,
		ForestWeight: 512.5,
		InFlight:     3,
	}
	collector.RecordTick(sample, 2*time.Millisecond)
	collector.RecordTick(sample, 3*time.Millisecond)

	if got := testutil.ToFloat64(collector.TicksTotal); got != 2 {
		t.Fatalf("sim_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Satellites); got != 8 {
		t.Fatalf("sim_satellites = %v, want 8", got)
	}
	if got := testutil.ToFloat64(collector.ForestEdges); got != 7 {
		t.Fatalf("sim_forest_edges = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.ForestWeight); got != 512.5 {
		t.Fatalf("sim_forest_weight = %v, want 512.5", got)
	}
	if got := testutil.ToFloat64(collector.PacketsInFlight); got != 3 {
		t.Fatalf("sim_packets_in_flight = %v, want 3", got)
	}

	if count := histogramSampleCount(t, reg, "sim_tick_duration_seconds", nil); count != 2 {
		t.Fatalf("sim_tick_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestSimCollector_RecordAbortCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	collector.RecordAbort()
	collector.RecordAbort()

	if got := testutil.ToFloat64(collector.TickAborts); got != 2 {
		t.Fatalf("sim_tick_aborts_total = %v, want 2", got)
	}
}

func TestSimCollector_RecordCountsEventsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	collector.Record(telemetry.NewPacketGeneratedEvent(1, "pkt-000001", "sat-1-1", "sat-2-1"))
	collector.Record(telemetry.NewPacketGeneratedEvent(2, "pkt-000002", "sat-2-1", "sat-1-1"))
	collector.Record(telemetry.NewPacketArrivedEvent(5, "pkt-000001", "sat-1-1", "sat-2-1", 2, 4))
	collector.Record(telemetry.NewMSTRebuiltEvent(5, 7, 1))

	if got := testutil.ToFloat64(collector.PacketEvents.WithLabelValues("packet-generated")); got != 2 {
		t.Fatalf("packet-generated count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.PacketEvents.WithLabelValues("packet-arrived")); got != 1 {
		t.Fatalf("packet-arrived count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.MSTRebuilds); got != 1 {
		t.Fatalf("sim_mst_rebuilds_total = %v, want 1", got)
	}
}

func TestSimCollector_MiddlewareRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	handler := collector.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/control", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("middleware altered status: %d", rr.Code)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/api/control", "POST", "204")); got != 1 {
		t.Fatalf("mesh_http_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "mesh_http_request_duration_seconds", map[string]string{
		"path":   "/api/control",
		"method": "POST",
	}); count != 1 {
		t.Fatalf("mesh_http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestSimCollector_HandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.RecordTick(telemetry.TopologySample{Satellites: 8, GraphEdges: 12}, time.Millisecond)
	collector.Record(telemetry.NewPacketGeneratedEvent(1, "pkt-000001", "a", "b"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sim_ticks_total",
		"sim_tick_duration_seconds",
		"sim_packet_events_total",
		"sim_satellites",
		"sim_graph_edges",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNewSimCollector_ToleratesReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("first NewSimCollector: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimCollector: %v", err)
	}

	// Both collectors share the already registered instruments.
	first.TicksTotal.Inc()
	if got := testutil.ToFloat64(second.TicksTotal); got != 1 {
		t.Fatalf("reregistered counter = %v, want shared value 1", got)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
