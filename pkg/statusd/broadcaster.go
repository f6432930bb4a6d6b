package statusd

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mavrell/drumbeat/pkg/agent"
)

// eventMessage is the wire envelope for streamed events
type eventMessage struct {
	Type  string      `json:"type"`
	Seq   int64       `json:"seq"`
	Event agent.Event `json:"event"`
}

// Broadcaster fans agent events out to every connected observer
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	seq     atomic.Int64
	logger  zerolog.Logger
}

// NewBroadcaster creates an event broadcaster
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger.With().Str("component", "broadcaster").Logger(),
	}
}

// Register adds an observer connection
func (b *Broadcaster) Register(conn *websocket.Conn) {
	b.mu.Lock()
	b.clients[conn] = struct{}{}
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.Debug().Int("clients", count).Msg("Observer connected")
}

// Unregister removes and closes an observer connection
func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()

	_ = conn.Close()
}

// Emit implements agent.Sink by streaming the event to all observers.
// A client that cannot be written to is dropped.
func (b *Broadcaster) Emit(ev agent.Event) {
	msg := eventMessage{
		Type:  "event",
		Seq:   b.seq.Add(1),
		Event: ev,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to marshal event")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.logger.Warn().Err(err).Msg("Dropping unresponsive observer")
			delete(b.clients, conn)
			_ = conn.Close()
		}
	}
}

// CloseAll disconnects every observer
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		_ = conn.Close()
		delete(b.clients, conn)
	}
}
