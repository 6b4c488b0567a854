package telemetry

import (
	"context"
	"sync"

	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
)

// Sink consumes events as they are emitted. Implementations must not
// block the tick loop; slow destinations belong behind an AsyncSink.
type Sink interface {
	Record(Event)
}

// LogSink writes every event through the structured logger, one line
// per event with the event kind as the message.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink wraps a structured logger as an event sink.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Noop()
	}
	return &LogSink{logger: logger}
}

// Record logs the event at info level.
func (s *LogSink) Record(ev Event) {
	fields := []logging.Field{
		logging.Any("tick", ev.Tick),
	}
	if ev.Kind == EventMSTRebuilt {
		fields = append(fields,
			logging.Int("edges", ev.Edges),
			logging.Int("components", ev.Components),
		)
	} else {
		fields = append(fields,
			logging.String("packet", ev.PacketID),
			logging.String("source", ev.Source),
			logging.String("destination", ev.Destination),
			logging.String("prior_state", ev.PriorState),
			logging.String("new_state", ev.NewState),
		)
	}
	s.logger.Info(context.Background(), string(ev.Kind), fields...)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Record forwards the event to every sink.
func (m MultiSink) Record(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ev)
		}
	}
}

type asyncItem struct {
	ev    Event
	flush chan struct{} // non-nil marks a flush request
}

// AsyncSink decouples event producers from slow destinations. A single
// writer goroutine drains a buffered channel in FIFO order, so the
// relative order of all events, per-packet ordering included, is
// preserved. Record blocks once the buffer fills rather than dropping.
type AsyncSink struct {
	dst Sink
	ch  chan asyncItem
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewAsyncSink starts the writer goroutine with the given buffer size.
func NewAsyncSink(dst Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &AsyncSink{dst: dst, ch: make(chan asyncItem, buffer)}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()
	for item := range s.ch {
		if item.flush != nil {
			close(item.flush)
			continue
		}
		s.dst.Record(item.ev)
	}
}

// Record queues the event. Events recorded after Close are discarded.
func (s *AsyncSink) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- asyncItem{ev: ev}
}

// Flush blocks until every event recorded so far has reached the
// destination sink.
func (s *AsyncSink) Flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ack := make(chan struct{})
	s.ch <- asyncItem{flush: ack}
	s.mu.Unlock()
	<-ack
}

// Close drains the buffer and stops the writer. Idempotent.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	s.wg.Wait()
}
