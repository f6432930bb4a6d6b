package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// SessionStore persists the opaque session blob between process runs.
// Only Bootstrap writes it; everything else reads.
type SessionStore struct {
	path   string
	logger zerolog.Logger
}

// NewSessionStore creates a store for the given path
func NewSessionStore(path string, logger zerolog.Logger) *SessionStore {
	return &SessionStore{
		path:   path,
		logger: logger.With().Str("component", "session-store").Logger(),
	}
}

// Path returns the store's file path
func (s *SessionStore) Path() string {
	return s.path
}

// Exists reports whether a persisted session blob is present
func (s *SessionStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads the persisted session blob
func (s *SessionStore) Load() (SessionState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	return SessionState(data), nil
}

// Save writes the session blob
func (s *SessionStore) Save(state SessionState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(state), 0600); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}

// Watch reloads the blob whenever the file is rewritten and hands it
// to onReload. This lets a login performed in a separate process
// refresh a long run without restarting it. Watch returns immediately;
// the watcher stops when ctx is cancelled.
func (s *SessionStore) Watch(ctx context.Context, onReload func(SessionState)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create session watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch session directory: %w", err)
	}

	go func() {
		defer watcher.Close()

		debounce := time.NewTimer(0)
		<-debounce.C // drain initial timer

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Debounce: the writer may touch the file several times
				debounce.Reset(500 * time.Millisecond)

			case <-debounce.C:
				state, err := s.Load()
				if err != nil {
					s.logger.Warn().Err(err).Msg("Failed to reload session state")
					continue
				}
				s.logger.Info().Msg("Session state reloaded from disk")
				onReload(state)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Msg("Session watcher error")

			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}
