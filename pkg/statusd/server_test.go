package statusd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavrell/drumbeat/pkg/agent"
)

func newTestServer(t *testing.T) (*Server, *agent.Tally, *Broadcaster, *httptest.Server) {
	t.Helper()

	tally := agent.NewTally()
	broadcaster := NewBroadcaster(zerolog.Nop())
	srv := NewServer(Config{
		Addr:   "127.0.0.1:0",
		RunID:  "run-test",
		Agents: 2,
		Corpus: 7,
	}, tally, broadcaster, zerolog.Nop())

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(func() {
		broadcaster.CloseAll()
		ts.Close()
	})

	return srv, tally, broadcaster, ts
}

func TestStatusEndpoint(t *testing.T) {
	_, tally, _, ts := newTestServer(t)

	tally.Emit(agent.Event{Agent: 0, Kind: agent.EventSent})
	tally.Emit(agent.Event{Agent: 1, Kind: agent.EventSent})
	tally.Emit(agent.Event{Agent: 1, Kind: agent.EventSkip})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))

	assert.Equal(t, "run-test", status.RunID)
	assert.Equal(t, 2, status.Agents)
	assert.Equal(t, 7, status.Corpus)
	assert.Equal(t, int64(2), status.Totals[agent.EventSent])
	assert.Equal(t, int64(1), status.Totals[agent.EventSkip])
	assert.Equal(t, int64(1), status.PerAgent[1][agent.EventSkip])
}

func TestStatusEndpointMethod(t *testing.T) {
	_, _, _, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	_, _, broadcaster, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Registration races the first Emit; give the handler a beat.
	require.Eventually(t, func() bool {
		broadcaster.mu.Lock()
		defer broadcaster.mu.Unlock()
		return len(broadcaster.clients) == 1
	}, time.Second, 10*time.Millisecond)

	broadcaster.Emit(agent.Event{Agent: 1, Kind: agent.EventSent, Index: 3, Conn: "c-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg eventMessage
	require.NoError(t, json.Unmarshal(data, &msg))

	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, int64(1), msg.Seq)
	assert.Equal(t, agent.EventSent, msg.Event.Kind)
	assert.Equal(t, 3, msg.Event.Index)
}

func TestBroadcasterDropsClosedClients(t *testing.T) {
	_, _, broadcaster, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	require.Eventually(t, func() bool {
		broadcaster.mu.Lock()
		defer broadcaster.mu.Unlock()
		return len(broadcaster.clients) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	// Two emits: the first may still land in OS buffers, the second
	// must observe the broken pipe and drop the client.
	require.Eventually(t, func() bool {
		broadcaster.Emit(agent.Event{Agent: 0, Kind: agent.EventSent})
		broadcaster.mu.Lock()
		defer broadcaster.mu.Unlock()
		return len(broadcaster.clients) == 0
	}, 2*time.Second, 50*time.Millisecond)
}
