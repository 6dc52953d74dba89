// Package pipeline implements the batch stages that move photos into and
// through the catalog. Each batch runs as a single goroutine processing its
// inputs strictly sequentially and reports through an ordered stream of
// events; the caller consumes the stream without ever blocking the batch.
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by a running batch.
const (
	EventProgress = "progress"
	EventLog      = "log"
	EventDone     = "done"
)

// Summary is attached to the final event of every completed batch, even one
// containing per-record failures.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
}

// Event is one notification from a batch to its observer.
type Event struct {
	RunID     string   `json:"run_id"`
	Type      string   `json:"type"`
	Progress  int      `json:"progress,omitempty"` // percent, monotonic
	Message   string   `json:"message,omitempty"`
	Summary   *Summary `json:"summary,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// emitter serializes a batch's notifications onto its event channel. One
// emitter belongs to exactly one batch goroutine, so sends stay ordered.
type emitter struct {
	runID  string
	events chan<- Event
}

func newEmitter(events chan<- Event) *emitter {
	return &emitter{runID: uuid.New().String(), events: events}
}

func (e *emitter) send(ev Event) {
	ev.RunID = e.runID
	ev.Timestamp = time.Now().Unix()
	e.events <- ev
}

func (e *emitter) progress(percent int) {
	e.send(Event{Type: EventProgress, Progress: percent})
}

func (e *emitter) log(msg string) {
	e.send(Event{Type: EventLog, Message: msg})
}

func (e *emitter) done(summary Summary) {
	e.send(Event{Type: EventProgress, Progress: 100})
	e.send(Event{Type: EventDone, Summary: &summary})
}
