package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeController_RunsRequestedSteps(t *testing.T) {
	tc := NewTimeController(time.Millisecond, RealTime)

	var seen []uint64
	tc.AddListener(func(step uint64) { seen = append(seen, step) })

	<-tc.Start(context.Background(), 5)

	if got := tc.Steps(); got != 5 {
		t.Fatalf("Steps() = %d, want 5", got)
	}
	if len(seen) != 5 {
		t.Fatalf("listener ran %d times, want 5", len(seen))
	}
	for i, step := range seen {
		if step != uint64(i+1) {
			t.Fatalf("step %d delivered as %d", i+1, step)
		}
	}
}

func TestTimeController_AcceleratedSkipsWaiting(t *testing.T) {
	// The interval is far longer than the test timeout; accelerated mode
	// must never wait for it.
	tc := NewTimeController(time.Hour, Accelerated)

	start := time.Now()
	<-tc.Start(context.Background(), 100)

	if got := tc.Steps(); got != 100 {
		t.Fatalf("Steps() = %d, want 100", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("accelerated run took %v", elapsed)
	}
}

func TestTimeController_StopsOnContextCancel(t *testing.T) {
	tc := NewTimeController(time.Millisecond, RealTime)

	ctx, cancel := context.WithCancel(context.Background())
	done := tc.Start(ctx, 0)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	if tc.Steps() == 0 {
		t.Fatal("expected at least one step before cancel")
	}
}
