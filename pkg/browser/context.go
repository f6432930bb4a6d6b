package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// SessionContext is the shared, session-scoped browser context. It is
// opened once from a SessionState by the orchestrator and handed by
// reference to every agent. Dial is safe for concurrent use; the
// connections it returns are not shared.
type SessionContext struct {
	process *ProcessManager
	browser *rod.Browser
	target  Target
	logger  zerolog.Logger

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSessionContext launches the browser, applies the session state
// and returns a connection factory bound to the target.
func NewSessionContext(opts Options, target Target, state SessionState, logger zerolog.Logger) (*SessionContext, error) {
	process := NewProcessManager(opts)

	browser, err := process.Launch()
	if err != nil {
		return nil, err
	}

	sc := &SessionContext{
		process: process,
		browser: browser,
		target:  target,
		logger:  logger.With().Str("component", "session").Logger(),
	}

	if err := sc.applyState(state); err != nil {
		_ = process.Kill()
		return nil, err
	}

	sc.logger.Info().Str("target", target.URL).Msg("Session context opened")
	return sc, nil
}

// Dial creates a new connection (page) from the shared session.
// Multiple agents may call Dial concurrently.
func (sc *SessionContext) Dial(ctx context.Context) (*Conn, error) {
	page, err := sc.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeConnection,
			Message: fmt.Sprintf("failed to create page: %v", err),
			Err:     err,
		}
	}

	return newConn(page, sc.target, sc.logger), nil
}

// ApplyState replaces the session cookies, e.g. after the persisted
// blob was refreshed externally. Existing connections keep running;
// new connections pick up the refreshed session.
func (sc *SessionContext) ApplyState(state SessionState) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.applyState(state)
}

func (sc *SessionContext) applyState(state SessionState) error {
	if len(state) == 0 {
		return nil
	}

	cookies, err := decodeState(state)
	if err != nil {
		return &Error{
			Code:    ErrCodeContext,
			Message: fmt.Sprintf("invalid session state: %v", err),
			Err:     err,
		}
	}

	if err := sc.browser.SetCookies(cookies); err != nil {
		return &Error{
			Code:    ErrCodeContext,
			Message: fmt.Sprintf("failed to apply session state: %v", err),
			Err:     err,
		}
	}

	sc.logger.Debug().Int("cookies", len(cookies)).Msg("Session state applied")
	return nil
}

// Close releases the browser and every page it owns, exactly once
func (sc *SessionContext) Close() error {
	sc.closeOnce.Do(func() {
		sc.closeErr = sc.process.Kill()
		sc.logger.Info().Msg("Session context closed")
	})
	return sc.closeErr
}

// encodeState serializes browser cookies into an opaque session blob
func encodeState(cookies []*proto.NetworkCookie) (SessionState, error) {
	data, err := json.Marshal(cookies)
	if err != nil {
		return nil, err
	}
	return SessionState(data), nil
}

// decodeState deserializes a session blob into settable cookies
func decodeState(state SessionState) ([]*proto.NetworkCookieParam, error) {
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(state, &cookies); err != nil {
		return nil, err
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return params, nil
}
