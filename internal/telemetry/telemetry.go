// Package telemetry provides a JSONL event stream for recording the stages of
// a trustprop run. Loading, graph construction, propagation, export and
// analysis are each recorded as a structured JSON event tagged with the run
// ID, so runs can be audited and compared after the fact.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart        = "run_start"
	KindRecordsLoaded   = "records_loaded"
	KindGraphBuilt      = "graph_built"
	KindPropagationDone = "propagation_done"
	KindExportDone      = "export_done"
	KindAnalysisDone    = "analysis_done"
	KindRunDone         = "run_done"
	KindRunFailed       = "run_failed"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag and the run it belongs to, along with arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	runID string
	file  *os.File
	enc   *json.Encoder
	mu    sync.Mutex
	now   func() time.Time
}

// NewEmitter creates a new Emitter that writes JSONL events for runID to the
// file at path. The file is created if it does not exist, or appended to if
// it does.
func NewEmitter(path, runID string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		runID: runID,
		file:  f,
		enc:   json.NewEncoder(f),
		now:   time.Now,
	}, nil
}

// Emit writes a single event to the JSONL file. Missing timestamps and run
// IDs are filled in from the emitter. Calling Emit on a nil Emitter is a
// no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record emits an event of the given kind carrying data.
func (e *Emitter) Record(kind string, data any) error {
	return e.Emit(Event{Kind: kind, Data: data})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// ReadEvents decodes a JSONL stream written by an Emitter. Blank lines are
// skipped.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(text, &evt); err != nil {
			return nil, fmt.Errorf("telemetry: line %d: %w", line, err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("telemetry: read: %w", err)
	}
	return events, nil
}
