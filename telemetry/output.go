package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/signalsfoundry/solarmesh-simulator/config"
)

// Recorder streams the event log and windowed stats to CSV files under
// an output directory. It implements Sink for the event stream; write
// failures are sticky and surface from Err and Close. Safe for use
// from an AsyncSink goroutine alongside stats writes on another.
type Recorder struct {
	mu         sync.Mutex
	dir        string
	eventsFile *os.File
	statsFile  *os.File

	eventsHeaderWritten bool
	statsHeaderWritten  bool

	err error
}

// NewRecorder creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled); a nil Recorder is safe
// to use everywhere.
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	r := &Recorder{dir: dir}

	f, err := os.Create(filepath.Join(dir, "events.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating events.csv: %w", err)
	}
	r.eventsFile = f

	f, err = os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		r.eventsFile.Close()
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	r.statsFile = f

	return r, nil
}

// Record appends one event to events.csv. The first write emits the
// header row.
func (r *Recorder) Record(ev Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}

	records := []Event{ev}
	if !r.eventsHeaderWritten {
		if err := gocsv.Marshal(records, r.eventsFile); err != nil {
			r.err = fmt.Errorf("writing events: %w", err)
			return
		}
		r.eventsHeaderWritten = true
		return
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.eventsFile); err != nil {
		r.err = fmt.Errorf("writing events: %w", err)
	}
}

// WriteStats appends one window stats record to stats.csv.
func (r *Recorder) WriteStats(ws WindowStats) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	records := []WindowStats{ws}
	if !r.statsHeaderWritten {
		if err := gocsv.Marshal(records, r.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		r.statsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.statsFile); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WriteConfig saves the effective configuration next to the CSVs so a
// run directory is self-describing.
func (r *Recorder) WriteConfig(cfg *config.Config) error {
	if r == nil || cfg == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(r.dir, "config.yaml"))
}

// Err returns the first event write failure, if any.
func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Dir returns the output directory path.
func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Close closes the CSV files and reports the first error seen.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	firstErr := r.err
	if r.eventsFile != nil {
		if err := r.eventsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.statsFile != nil {
		if err := r.statsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
