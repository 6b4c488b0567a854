package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecorder_WritesEventAndStatsCSVs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run-1")
	rec, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	rec.Record(NewPacketGeneratedEvent(1, "pkt-000001", "sat-1-1", "sat-2-2"))
	rec.Record(NewPacketArrivedEvent(4, "pkt-000001", "sat-1-1", "sat-2-2", 2, 3))
	if err := rec.WriteStats(WindowStats{WindowEndTick: 500, Generated: 12, Arrived: 10, DeliveryRate: 10.0 / 12.0}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("recorder error: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events, err := os.ReadFile(filepath.Join(dir, "events.csv"))
	if err != nil {
		t.Fatalf("read events.csv: %v", err)
	}
	eventLines := strings.Split(strings.TrimSpace(string(events)), "\n")
	if len(eventLines) != 3 {
		t.Fatalf("events.csv has %d lines, want header plus 2 rows", len(eventLines))
	}
	if !strings.Contains(eventLines[0], "kind") || !strings.Contains(eventLines[0], "packet_id") {
		t.Fatalf("events.csv header missing columns: %q", eventLines[0])
	}
	if !strings.Contains(eventLines[1], "packet-generated") || !strings.Contains(eventLines[2], "packet-arrived") {
		t.Fatalf("events.csv rows out of order or incomplete: %v", eventLines[1:])
	}

	stats, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("read stats.csv: %v", err)
	}
	statLines := strings.Split(strings.TrimSpace(string(stats)), "\n")
	if len(statLines) != 2 {
		t.Fatalf("stats.csv has %d lines, want header plus 1 row", len(statLines))
	}
	if !strings.Contains(statLines[0], "window_end") || !strings.Contains(statLines[0], "delivery_rate") {
		t.Fatalf("stats.csv header missing columns: %q", statLines[0])
	}
	if !strings.Contains(statLines[1], "500") {
		t.Fatalf("stats.csv row missing window end: %q", statLines[1])
	}
}

func TestRecorder_DisabledWhenDirEmpty(t *testing.T) {
	rec, err := NewRecorder("")
	if err != nil {
		t.Fatalf("NewRecorder(\"\"): %v", err)
	}
	if rec != nil {
		t.Fatal("expected a nil recorder when output is disabled")
	}

	// All methods must be safe on the nil recorder.
	rec.Record(NewPacketGeneratedEvent(1, "pkt-000001", "a", "b"))
	if err := rec.WriteStats(WindowStats{}); err != nil {
		t.Fatalf("nil WriteStats: %v", err)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("nil Err: %v", err)
	}
	if got := rec.Dir(); got != "" {
		t.Fatalf("nil Dir = %q, want empty", got)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
