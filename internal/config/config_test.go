package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampAgents(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero clamps to minimum", 0, 1},
		{"negative clamps to minimum", -5, 1},
		{"minimum passes through", 1, 1},
		{"in range passes through", 3, 3},
		{"maximum passes through", 5, 5},
		{"above maximum clamps", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampAgents(tt.in))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Agents.Count)
	assert.Equal(t, 60, cfg.Agents.CycleSeconds)
	assert.Equal(t, 10, cfg.Agents.RotateLeadSeconds)
	assert.Equal(t, 300, cfg.Agents.SendDelayMs)
	assert.Equal(t, "and", cfg.Corpus.AltWord)
	assert.True(t, cfg.Browser.Headless)
	assert.NotEmpty(t, cfg.Target.Selectors.Surface)
}

func TestLoader(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, 1, cfg.Agents.Count)
		assert.NotEmpty(t, cfg.DataDir)
		assert.NotEmpty(t, cfg.Logging.File)
		assert.NotEmpty(t, cfg.Session.StatePath)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "drumbeat.json")
		content := `{
			"target": {"url": "https://example.com/inbox"},
			"corpus": {"descriptor": "a & b"},
			"agents": {"count": 3, "cycle_seconds": 30}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/inbox", cfg.Target.URL)
		assert.Equal(t, "a & b", cfg.Corpus.Descriptor)
		assert.Equal(t, 3, cfg.Agents.Count)
		assert.Equal(t, 30, cfg.Agents.CycleSeconds)
		// Untouched sections keep their defaults
		assert.Equal(t, 10, cfg.Agents.RotateLeadSeconds)
		assert.Equal(t, "and", cfg.Corpus.AltWord)
	})

	t.Run("save then load round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "drumbeat.json")
		loader := NewLoader(path)

		cfg := DefaultConfig()
		cfg.Target.URL = "https://example.com/x"
		cfg.Corpus.Descriptor = "one & two"
		cfg.Agents.Count = 2
		require.NoError(t, loader.Save(cfg))

		got, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/x", got.Target.URL)
		assert.Equal(t, "one & two", got.Corpus.Descriptor)
		assert.Equal(t, 2, got.Agents.Count)
	})
}
