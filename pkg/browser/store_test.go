package browser

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	t.Run("save then load round trip", func(t *testing.T) {
		store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())

		assert.False(t, store.Exists())

		state := SessionState(`[{"name":"sid","value":"abc"}]`)
		require.NoError(t, store.Save(state))

		assert.True(t, store.Exists())

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, state, loaded)
	})

	t.Run("save creates missing directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deep", "nested", "session.json")
		store := NewSessionStore(path, zerolog.Nop())

		require.NoError(t, store.Save(SessionState("{}")))
		assert.True(t, store.Exists())
	})

	t.Run("load of a missing file fails", func(t *testing.T) {
		store := NewSessionStore(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())

		_, err := store.Load()
		require.Error(t, err)
	})
}

func TestSessionStoreWatch(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	require.NoError(t, store.Save(SessionState("old")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan SessionState, 4)
	require.NoError(t, store.Watch(ctx, func(state SessionState) {
		reloaded <- state
	}))

	// An external login rewrites the blob; the watcher picks it up.
	require.NoError(t, store.Save(SessionState("refreshed")))

	select {
	case state := <-reloaded:
		assert.Equal(t, SessionState("refreshed"), state)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not observe the rewrite")
	}
}

func TestStateCodec(t *testing.T) {
	t.Run("rejects malformed state", func(t *testing.T) {
		_, err := decodeState(SessionState("not json"))
		require.Error(t, err)
	})

	t.Run("empty list is valid", func(t *testing.T) {
		params, err := decodeState(SessionState("[]"))
		require.NoError(t, err)
		assert.Empty(t, params)
	})
}
