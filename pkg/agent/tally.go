package agent

import "sync"

// Tally is a thread-safe running count of events, usable as a Sink.
// It backs the status endpoint and the periodic progress summary.
type Tally struct {
	mu       sync.RWMutex
	totals   map[EventKind]int64
	perAgent map[int]map[EventKind]int64
}

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{
		totals:   make(map[EventKind]int64),
		perAgent: make(map[int]map[EventKind]int64),
	}
}

// Emit implements Sink
func (t *Tally) Emit(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totals[ev.Kind]++

	agent, ok := t.perAgent[ev.Agent]
	if !ok {
		agent = make(map[EventKind]int64)
		t.perAgent[ev.Agent] = agent
	}
	agent[ev.Kind]++
}

// Total returns the running count for one kind
func (t *Tally) Total(kind EventKind) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totals[kind]
}

// Snapshot returns a copy of all counts
func (t *Tally) Snapshot() map[EventKind]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[EventKind]int64, len(t.totals))
	for k, v := range t.totals {
		out[k] = v
	}
	return out
}

// AgentSnapshot returns a copy of per-agent counts
func (t *Tally) AgentSnapshot() map[int]map[EventKind]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[int]map[EventKind]int64, len(t.perAgent))
	for id, counts := range t.perAgent {
		copied := make(map[EventKind]int64, len(counts))
		for k, v := range counts {
			copied[k] = v
		}
		out[id] = copied
	}
	return out
}
