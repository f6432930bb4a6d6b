// Package statusd exposes a read-only observer endpoint for a running
// drumbeat process: current counters, a Prometheus scrape target and a
// live websocket event stream.
package statusd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mavrell/drumbeat/pkg/agent"
)

// Config configures the status server
type Config struct {
	Addr    string
	RunID   string
	Agents  int
	Corpus  int
	Metrics http.Handler
}

// Server is the observer HTTP endpoint
type Server struct {
	cfg         Config
	tally       *agent.Tally
	broadcaster *Broadcaster
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	startedAt   time.Time
	logger      zerolog.Logger
}

// NewServer creates a status server
func NewServer(cfg Config, tally *agent.Tally, broadcaster *Broadcaster, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		tally:       tally,
		broadcaster: broadcaster,
		startedAt:   time.Now(),
		logger:      logger.With().Str("component", "statusd").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/events", s.handleEvents)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start serves until Shutdown is called. It returns immediately.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("Status server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Status server failed")
		}
	}()
}

// Shutdown stops the server and disconnects all observers
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcaster.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// statusResponse is the /status payload
type statusResponse struct {
	RunID    string                            `json:"run_id"`
	UptimeMs int64                             `json:"uptime_ms"`
	Agents   int                               `json:"agents"`
	Corpus   int                               `json:"corpus"`
	Totals   map[agent.EventKind]int64         `json:"totals"`
	PerAgent map[int]map[agent.EventKind]int64 `json:"per_agent"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		RunID:    s.cfg.RunID,
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
		Agents:   s.cfg.Agents,
		Corpus:   s.cfg.Corpus,
		Totals:   s.tally.Snapshot(),
		PerAgent: s.tally.AgentSnapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write status response")
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	s.broadcaster.Register(conn)

	// Reader loop only to detect disconnects; observers never send.
	go func() {
		defer s.broadcaster.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
