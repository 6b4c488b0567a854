package telemetry

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
)

// recordingSink collects events under a lock so async writers can hit it.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestAsyncSink_PreservesOrder(t *testing.T) {
	dst := &recordingSink{}
	sink := NewAsyncSink(dst, 16)
	defer sink.Close()

	const n = 200
	for i := 0; i < n; i++ {
		sink.Record(NewPacketGeneratedEvent(uint64(i), fmt.Sprintf("pkt-%06d", i), "a", "b"))
	}
	sink.Flush()

	got := dst.snapshot()
	if len(got) != n {
		t.Fatalf("destination saw %d events, want %d", len(got), n)
	}
	for i, ev := range got {
		if ev.Tick != uint64(i) {
			t.Fatalf("event %d has tick %d, order not preserved", i, ev.Tick)
		}
	}
}

func TestAsyncSink_CloseDrainsAndDiscardsLater(t *testing.T) {
	dst := &recordingSink{}
	sink := NewAsyncSink(dst, 16)

	sink.Record(NewPacketGeneratedEvent(1, "pkt-000001", "a", "b"))
	sink.Close()
	sink.Close() // idempotent

	if got := len(dst.snapshot()); got != 1 {
		t.Fatalf("destination saw %d events after close, want 1", got)
	}

	// After Close both Record and Flush are inert.
	sink.Record(NewPacketGeneratedEvent(2, "pkt-000002", "a", "b"))
	sink.Flush()
	if got := len(dst.snapshot()); got != 1 {
		t.Fatalf("closed sink accepted an event, destination has %d", got)
	}
}

func TestMultiSink_FansOutInOrder(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	multi := MultiSink{first, nil, second}

	multi.Record(NewMSTRebuiltEvent(3, 7, 1))

	if len(first.snapshot()) != 1 || len(second.snapshot()) != 1 {
		t.Fatalf("fan-out incomplete: %d and %d events",
			len(first.snapshot()), len(second.snapshot()))
	}
}

func TestLogSink_WritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.Config{Format: "json"}, &buf)
	sink := NewLogSink(logger)

	sink.Record(NewPacketArrivedEvent(9, "pkt-000004", "sat-1-1", "sat-2-2", 3, 12))
	sink.Record(NewMSTRebuiltEvent(10, 7, 2))

	out := buf.String()
	for _, want := range []string{"packet-arrived", "pkt-000004", "sat-2-2", "mst-rebuilt", `"components":2`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q: %s", want, out)
		}
	}
}
