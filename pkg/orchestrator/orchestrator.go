// Package orchestrator assembles and runs a drumbeat fleet: it parses
// the corpus, resolves the authenticated session, opens the shared
// browser context and fans out the configured number of agent runtimes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mavrell/drumbeat/internal/config"
	"github.com/mavrell/drumbeat/internal/metrics"
	"github.com/mavrell/drumbeat/pkg/agent"
	"github.com/mavrell/drumbeat/pkg/browser"
	"github.com/mavrell/drumbeat/pkg/corpus"
	"github.com/mavrell/drumbeat/pkg/journal"
	"github.com/mavrell/drumbeat/pkg/statusd"
)

// Orchestrator owns everything shared between the agents of one run
type Orchestrator struct {
	cfg    *config.Config
	logger zerolog.Logger
	runID  string
}

// New creates an orchestrator for the given configuration
func New(cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		runID:  uuid.New().String(),
	}
}

// RunID returns the unique identifier of this run
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the full lifecycle: corpus parse, session resolution,
// shared context open, agent fan-out, teardown. It blocks until ctx is
// cancelled or every agent has exited.
func (o *Orchestrator) Run(ctx context.Context) error {
	crp, err := corpus.Parse(o.cfg.Corpus.Descriptor, corpus.Options{AltWord: o.cfg.Corpus.AltWord})
	if err != nil {
		return fmt.Errorf("corpus: %w", err)
	}

	count := config.ClampAgents(o.cfg.Agents.Count)
	if count != o.cfg.Agents.Count {
		o.logger.Warn().
			Int("requested", o.cfg.Agents.Count).
			Int("clamped", count).
			Msg("Agent count out of range, clamped")
	}

	o.logger.Info().
		Str("run_id", o.runID).
		Int("agents", count).
		Int("corpus", crp.Len()).
		Str("target", o.cfg.Target.URL).
		Msg("Starting run")

	opts := browser.Options{
		Headless:    o.cfg.Browser.Headless,
		NoSandbox:   o.cfg.Browser.NoSandbox,
		ChromePath:  o.cfg.Browser.ChromePath,
		UserDataDir: o.cfg.Browser.UserDataDir,
	}
	target := browser.Target{
		URL:            o.cfg.Target.URL,
		Surface:        o.cfg.Target.Selectors.Surface,
		NavTimeout:     time.Duration(o.cfg.Agents.NavTimeoutSeconds) * time.Second,
		SurfaceTimeout: time.Duration(o.cfg.Agents.SurfaceTimeoutSeconds) * time.Second,
	}

	store := browser.NewSessionStore(o.cfg.Session.StatePath, o.logger)
	state, err := o.resolveSession(ctx, store, opts, target)
	if err != nil {
		return err
	}

	session, err := browser.NewSessionContext(opts, target, state, o.logger)
	if err != nil {
		return fmt.Errorf("session context: %w", err)
	}
	defer session.Close()

	// New connections pick up a session blob refreshed by an external
	// login without restarting the run.
	if err := store.Watch(ctx, func(state browser.SessionState) {
		if err := session.ApplyState(state); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to apply refreshed session state")
		}
	}); err != nil {
		o.logger.Warn().Err(err).Msg("Session watcher unavailable")
	}

	tally := agent.NewTally()
	m := metrics.New()
	m.CorpusSize.Set(float64(crp.Len()))
	sinks := []agent.Sink{tally, m.Sink()}

	if o.cfg.Journal.Enabled {
		jnl, err := journal.Open(o.cfg.Journal.Path, o.logger)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer jnl.Close()
		sinks = append(sinks, jnl.Sink())
	}

	if o.cfg.Status.Enabled {
		broadcaster := statusd.NewBroadcaster(o.logger)
		server := statusd.NewServer(statusd.Config{
			Addr:    o.cfg.Status.Addr,
			RunID:   o.runID,
			Agents:  count,
			Corpus:  crp.Len(),
			Metrics: m.Handler(),
		}, tally, broadcaster, o.logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		sinks = append(sinks, broadcaster)
	}

	if stop := o.startSummary(tally); stop != nil {
		defer stop()
	}

	return o.runAgents(ctx, count, crp, session, agent.MultiSink(sinks))
}

// resolveSession loads the persisted session blob, or performs the
// credential bootstrap once when none exists
func (o *Orchestrator) resolveSession(ctx context.Context, store *browser.SessionStore, opts browser.Options, target browser.Target) (browser.SessionState, error) {
	if store.Exists() {
		state, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("session state: %w", err)
		}
		o.logger.Info().Str("path", store.Path()).Msg("Using persisted session state")
		return state, nil
	}

	o.logger.Info().Msg("No persisted session state, performing initial login")

	form := browser.LoginForm{
		URL:      o.cfg.Target.LoginURL,
		Username: o.cfg.Target.Selectors.Username,
		Password: o.cfg.Target.Selectors.Password,
		Submit:   o.cfg.Target.Selectors.Submit,
	}
	creds := browser.Credentials{
		Username: o.cfg.Session.Username,
		Password: o.cfg.Session.Password,
	}

	state, err := browser.Bootstrap(ctx, opts, form, target, creds, o.logger)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := store.Save(state); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to persist session state")
	}
	return state, nil
}

// startSummary schedules a periodic counter summary. The returned stop
// function halts the scheduler; nil means no summary was scheduled.
func (o *Orchestrator) startSummary(tally *agent.Tally) func() {
	every := o.cfg.Status.SummaryEvery
	if every == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc("@every "+every, func() {
		o.logger.Info().
			Int64("sent", tally.Total(agent.EventSent)).
			Int64("skipped", tally.Total(agent.EventSkip)).
			Int64("retries", tally.Total(agent.EventRetry)).
			Int64("reconnects", tally.Total(agent.EventReconnect)).
			Msg("Run summary")
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("every", every).Msg("Invalid summary interval")
		return nil
	}

	c.Start()
	return func() { c.Stop() }
}

// runAgents fans out count agent runtimes and waits for all of them.
// A single agent failing to start never takes the others down; its
// error is collected and reported after the run ends.
func (o *Orchestrator) runAgents(ctx context.Context, count int, crp *corpus.Corpus, session *browser.SessionContext, sink agent.Sink) error {
	policy := agent.Policy{
		Cycle:           time.Duration(o.cfg.Agents.CycleSeconds) * time.Second,
		RotateLead:      time.Duration(o.cfg.Agents.RotateLeadSeconds) * time.Second,
		SendDelay:       time.Duration(o.cfg.Agents.SendDelayMs) * time.Millisecond,
		SendRetries:     o.cfg.Agents.SendRetries,
		ConnectAttempts: o.cfg.Agents.ConnectAttempts,
		ConnectBackoff:  agent.DefaultPolicy().ConnectBackoff,
		RecreateBackoff: time.Duration(o.cfg.Agents.RecreateBackoffMs) * time.Millisecond,
	}

	dialer := &sessionDialer{session: session}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for i := 0; i < count; i++ {
		runtime := agent.New(agent.Config{
			ID:     i,
			Dialer: dialer,
			Corpus: crp,
			Policy: policy,
			Clock:  agent.RealClock{},
			Logger: o.logger,
			Sink:   sink,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runtime.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	o.logger.Info().Str("run_id", o.runID).Msg("Run finished")

	return errors.Join(errs...)
}

// sessionDialer adapts the shared browser session to the agent-side
// Dialer interface
type sessionDialer struct {
	session *browser.SessionContext
}

func (d *sessionDialer) Dial(ctx context.Context) (agent.Conn, error) {
	return d.session.Dial(ctx)
}
