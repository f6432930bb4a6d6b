package agent

import "time"

// EventKind identifies what happened in an agent iteration
type EventKind string

// Event kinds emitted by the runtime
const (
	EventStarted       EventKind = "started"
	EventSent          EventKind = "sent"
	EventSkip          EventKind = "skip"
	EventRetry         EventKind = "retry"
	EventReconnect     EventKind = "reconnect"
	EventRotatePromote EventKind = "rotate_promote"
	EventRotateReload  EventKind = "rotate_reload"
	EventStopped       EventKind = "stopped"
)

// Event is one observable runtime transition. Events feed metrics,
// the journal, the status stream and the periodic summary.
type Event struct {
	Agent int       `json:"agent"`
	Kind  EventKind `json:"kind"`
	Index int       `json:"index"`
	Conn  string    `json:"conn,omitempty"`
	At    time.Time `json:"at"`
	// Elapsed is how long the submission took; set on sent events only
	Elapsed time.Duration `json:"elapsed,omitempty"`
	Err     string        `json:"err,omitempty"`
}

// Sink consumes runtime events. Implementations must not block.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ev Event)

// Emit implements Sink
func (f SinkFunc) Emit(ev Event) { f(ev) }

// MultiSink fans one event out to several sinks
type MultiSink []Sink

// Emit implements Sink
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
