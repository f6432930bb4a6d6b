package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mavrell/drumbeat/pkg/corpus"
)

// promoteGrace bounds how long the rotation deadline waits for a
// still-in-flight shadow preload before falling back to reconnecting
// the primary in place.
const promoteGrace = 100 * time.Millisecond

// Policy holds the timing and retry parameters of one agent runtime
type Policy struct {
	// Cycle is the rotation cycle length
	Cycle time.Duration
	// RotateLead is how long before the cycle deadline the shadow
	// connection preload begins
	RotateLead time.Duration
	// SendDelay is the fixed inter-iteration delay bounding send rate
	SendDelay time.Duration
	// SendRetries is how many times a failed send is retried in place
	// before the connection is recreated
	SendRetries int
	// ConnectAttempts bounds the startup connection attempts
	ConnectAttempts int
	// ConnectBackoff separates startup connection attempts
	ConnectBackoff time.Duration
	// RecreateBackoff is the longer backoff applied when recreating a
	// connection from scratch fails
	RecreateBackoff time.Duration
}

// DefaultPolicy returns the default runtime policy
func DefaultPolicy() Policy {
	return Policy{
		Cycle:           60 * time.Second,
		RotateLead:      10 * time.Second,
		SendDelay:       300 * time.Millisecond,
		SendRetries:     2,
		ConnectAttempts: 3,
		ConnectBackoff:  2 * time.Second,
		RecreateBackoff: 3 * time.Second,
	}
}

// Config assembles a Runtime
type Config struct {
	ID     int
	Dialer Dialer
	Corpus *corpus.Corpus
	Policy Policy
	Clock  Clock
	Logger zerolog.Logger
	Sink   Sink
}

// Runtime is one agent: it owns a primary connection, cycles through
// the shared corpus, and periodically rotates the connection to keep
// it fresh. Runtimes never share mutable state; a Runtime is driven by
// exactly one goroutine.
type Runtime struct {
	id     int
	dialer Dialer
	corpus *corpus.Corpus
	policy Policy
	clock  Clock
	logger zerolog.Logger
	sink   Sink

	cursor     int
	primary    Conn
	shadowCh   chan Conn
	shadowOld  bool
	cycleStart time.Time
	preloaded  bool
}

// New creates an agent runtime
func New(cfg Config) *Runtime {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}

	return &Runtime{
		id:     cfg.ID,
		dialer: cfg.Dialer,
		corpus: cfg.Corpus,
		policy: cfg.Policy,
		clock:  clock,
		logger: cfg.Logger.With().Int("agent", cfg.ID).Logger(),
		sink:   cfg.Sink,
	}
}

// Cursor returns the current corpus cursor, always in [0, corpus len)
func (r *Runtime) Cursor() int {
	return r.cursor
}

// Run drives the agent until ctx is cancelled. Only an unrecoverable
// startup failure produces an error; every steady-state failure is
// absorbed by the retry/recreate policy. Cancellation is a clean exit.
func (r *Runtime) Run(ctx context.Context) error {
	defer r.teardown()

	if err := r.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Agent startup failed")
		return fmt.Errorf("agent %d startup: %w", r.id, err)
	}

	r.logger.Info().Str("conn", r.primary.ID()).Msg("Agent ready, starting send loop")
	r.emit(EventStarted, nil)
	r.cycleStart = r.clock.Now()

	for {
		if ctx.Err() != nil {
			return nil
		}

		r.discardStaleShadow()

		elapsed := r.clock.Now().Sub(r.cycleStart)
		switch {
		case elapsed >= r.policy.Cycle:
			r.rotate(ctx)
			continue
		case elapsed >= r.policy.Cycle-r.policy.RotateLead && !r.preloaded:
			r.preloadShadow(ctx)
		}

		r.step(ctx)

		if err := r.clock.Sleep(ctx, r.policy.SendDelay); err != nil {
			return nil
		}
	}
}

// connect establishes the initial primary connection, retrying briefly
func (r *Runtime) connect(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.ConnectAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := r.dial(ctx)
		if err == nil {
			r.primary = conn
			return nil
		}
		lastErr = err

		r.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", r.policy.ConnectAttempts).
			Msg("Connection attempt failed")

		if attempt < r.policy.ConnectAttempts {
			if err := r.clock.Sleep(ctx, r.policy.ConnectBackoff); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("all %d connection attempts failed: %w", r.policy.ConnectAttempts, lastErr)
}

// dial creates and opens one connection
func (r *Runtime) dial(ctx context.Context) (Conn, error) {
	conn, err := r.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Open(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// step performs one send iteration against the primary connection
func (r *Runtime) step(ctx context.Context) {
	// A previous recreate failure left the agent without a primary;
	// try again with the longer backoff before anything else.
	if r.primary == nil {
		if err := r.recreate(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("Connection recreation failed, backing off")
			_ = r.clock.Sleep(ctx, r.policy.RecreateBackoff)
			return
		}
	}

	msg := r.corpus.At(r.cursor)

	if !r.primary.Ready(ctx) {
		r.logger.Debug().Int("index", r.cursor).Msg("Surface not interactable, skipping")
		r.emit(EventSkip, nil)
		r.cursor = r.corpus.Next(r.cursor)
		return
	}

	text := HardenWhitespace(string(msg))
	start := r.clock.Now()

	var lastErr error
	for attempt := 0; attempt <= r.policy.SendRetries; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if attempt > 0 {
			r.emit(EventRetry, lastErr)
			r.logger.Debug().Err(lastErr).
				Int("index", r.cursor).
				Int("attempt", attempt).
				Msg("Retrying send in place")
		}

		if err := r.primary.Post(ctx, text); err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr == nil {
		elapsed := r.clock.Now().Sub(start)
		r.logger.Info().
			Int("index", r.cursor).
			Int("of", r.corpus.Len()).
			Dur("elapsed", elapsed).
			Msg("Message sent")
		r.emitSent(elapsed)
		r.cursor = r.corpus.Next(r.cursor)
		return
	}

	// Retries exhausted: discard the connection and rebuild it from
	// the entry point. The cursor stays put so the message is not lost.
	r.logger.Warn().Err(lastErr).
		Int("index", r.cursor).
		Msg("Send retries exhausted, recreating connection")

	old := r.primary
	r.primary = nil
	_ = old.Close()

	if err := r.recreate(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Connection recreation failed, backing off")
		_ = r.clock.Sleep(ctx, r.policy.RecreateBackoff)
	}
}

// recreate builds a fresh primary connection from scratch
func (r *Runtime) recreate(ctx context.Context) error {
	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}

	r.primary = conn
	r.logger.Info().Str("conn", conn.ID()).Msg("Connection recreated")
	r.emit(EventReconnect, nil)
	return nil
}

// preloadShadow starts establishing the shadow connection without
// interrupting sends on the primary. The result is collected at the
// rotation deadline.
func (r *Runtime) preloadShadow(ctx context.Context) {
	r.preloaded = true
	if r.shadowCh != nil {
		// A stale preload from the previous cycle is still in flight
		return
	}

	ch := make(chan Conn, 1)
	r.shadowCh = ch
	r.shadowOld = false

	r.logger.Debug().Msg("Preloading shadow connection")

	go func() {
		conn, err := r.dial(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Shadow preload failed")
			ch <- nil
			return
		}
		ch <- conn
	}()
}

// rotate runs at the cycle deadline: promote the shadow if it is
// ready, otherwise reconnect the primary in place. Either way the
// cycle clock resets.
func (r *Runtime) rotate(ctx context.Context) {
	shadow := r.collectShadow()

	if shadow != nil {
		old := r.primary
		// Promote before closing so no send ever targets a connection
		// that has begun closing.
		r.primary = shadow
		if old != nil {
			_ = old.Close()
		}
		r.logger.Info().Str("conn", shadow.ID()).Msg("Rotated to shadow connection")
		r.emit(EventRotatePromote, nil)
	} else if r.primary != nil {
		if err := r.primary.Open(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("In-place reconnect failed")
			r.emit(EventRotateReload, err)
		} else {
			r.logger.Info().Str("conn", r.primary.ID()).Msg("Reconnected primary in place")
			r.emit(EventRotateReload, nil)
		}
	}

	r.cycleStart = r.clock.Now()
	r.preloaded = false
}

// collectShadow retrieves the preloaded shadow connection, waiting at
// most promoteGrace for a preload that is still in flight. A delivered
// shadow always wins over the grace timer; a preload that misses the
// deadline is discarded when it eventually lands.
func (r *Runtime) collectShadow() Conn {
	if r.shadowCh == nil {
		return nil
	}

	select {
	case conn := <-r.shadowCh:
		r.shadowCh = nil
		return conn
	default:
	}

	select {
	case conn := <-r.shadowCh:
		r.shadowCh = nil
		return conn
	case <-r.clock.After(promoteGrace):
		r.shadowOld = true
		return nil
	}
}

// discardStaleShadow closes a shadow connection that completed after
// its rotation deadline had already passed
func (r *Runtime) discardStaleShadow() {
	if r.shadowCh == nil || !r.shadowOld {
		return
	}

	select {
	case conn := <-r.shadowCh:
		r.shadowCh = nil
		r.shadowOld = false
		if conn != nil {
			r.logger.Debug().Str("conn", conn.ID()).Msg("Discarding late shadow connection")
			_ = conn.Close()
		}
	default:
	}
}

// teardown releases every connection the agent still owns
func (r *Runtime) teardown() {
	if r.primary != nil {
		_ = r.primary.Close()
		r.primary = nil
	}

	if r.shadowCh != nil {
		select {
		case conn := <-r.shadowCh:
			if conn != nil {
				_ = conn.Close()
			}
		default:
		}
		r.shadowCh = nil
	}

	r.emit(EventStopped, nil)
	r.logger.Info().Msg("Agent stopped")
}

// emit publishes one runtime event to the sink
func (r *Runtime) emit(kind EventKind, err error) {
	ev := Event{
		Agent: r.id,
		Kind:  kind,
		Index: r.cursor,
		At:    r.clock.Now(),
	}
	if err != nil {
		ev.Err = err.Error()
	}
	r.publish(ev)
}

// emitSent publishes a sent event carrying the submission latency
func (r *Runtime) emitSent(elapsed time.Duration) {
	r.publish(Event{
		Agent:   r.id,
		Kind:    EventSent,
		Index:   r.cursor,
		At:      r.clock.Now(),
		Elapsed: elapsed,
	})
}

func (r *Runtime) publish(ev Event) {
	if r.sink == nil {
		return
	}
	if r.primary != nil {
		ev.Conn = r.primary.ID()
	}
	r.sink.Emit(ev)
}
