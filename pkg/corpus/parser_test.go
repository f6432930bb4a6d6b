package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func messageStrings(c *Corpus) []string {
	out := make([]string, 0, c.Len())
	for _, m := range c.Messages() {
		out = append(out, string(m))
	}
	return out
}

func TestParseBulk(t *testing.T) {
	t.Run("splits on ampersand", func(t *testing.T) {
		c, err := Parse("A & B & C", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"A", "B", "C"}, messageStrings(c))
	})

	t.Run("splits on whole-word alternate", func(t *testing.T) {
		c, err := Parse("Rock and roll and blues", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"Rock", "roll", "blues"}, messageStrings(c))
	})

	t.Run("alternate is not matched inside words", func(t *testing.T) {
		c, err := Parse("sandwich & bandage", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"sandwich", "bandage"}, messageStrings(c))
	})

	t.Run("alternate is case-insensitive", func(t *testing.T) {
		c, err := Parse("one AND two And three", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"one", "two", "three"}, messageStrings(c))
	})

	t.Run("empty alternate disables the word delimiter", func(t *testing.T) {
		c, err := Parse("salt and pepper & vinegar", Options{})
		require.NoError(t, err)

		assert.Equal(t, []string{"salt and pepper", "vinegar"}, messageStrings(c))
	})

	t.Run("folds confusable ampersand glyphs", func(t *testing.T) {
		c, err := Parse("first ＆ second ﹠ third ⅋ fourth", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"first", "second", "third", "fourth"}, messageStrings(c))
	})

	t.Run("strips zero-width characters", func(t *testing.T) {
		c, err := Parse("he\u200Bllo &\uFEFF world", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"hello", "world"}, messageStrings(c))
	})

	t.Run("no delimiter yields a single message", func(t *testing.T) {
		c, err := Parse("just one message", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"just one message"}, messageStrings(c))
	})

	t.Run("no delimiter preserves interior newlines", func(t *testing.T) {
		c, err := Parse("line one\nline two\nline three", Options{})
		require.NoError(t, err)

		require.Equal(t, 1, c.Len())
		assert.Equal(t, Message("line one\nline two\nline three"), c.At(0))
	})

	t.Run("multi-line piece next to a delimiter", func(t *testing.T) {
		c, err := Parse("top\nbottom & next", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"top\nbottom", "next"}, messageStrings(c))
	})

	t.Run("windows line endings fold to newlines", func(t *testing.T) {
		c, err := Parse("first\r\nsecond & third", Options{})
		require.NoError(t, err)

		assert.Equal(t, []string{"first\nsecond", "third"}, messageStrings(c))
	})

	t.Run("drops empty pieces", func(t *testing.T) {
		c, err := Parse("& A && B &", DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"A", "B"}, messageStrings(c))
	})

	t.Run("empty descriptor fails", func(t *testing.T) {
		_, err := Parse("   ", DefaultOptions())
		require.Error(t, err)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("delimiter-only descriptor fails", func(t *testing.T) {
		_, err := Parse("& and &", DefaultOptions())
		require.Error(t, err)
	})
}

func TestParseStructured(t *testing.T) {
	t.Run("decodes one JSON string per line", func(t *testing.T) {
		path := writeCorpusFile(t, "\"first\"\n\"second\"\n\"third\"\n")

		c, err := Parse(path, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"first", "second", "third"}, messageStrings(c))
	})

	t.Run("preserves delimiters and newlines verbatim", func(t *testing.T) {
		path := writeCorpusFile(t, "\"fish & chips\"\n\"line one\\nline two\"\n")

		c, err := Parse(path, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"fish & chips", "line one\nline two"}, messageStrings(c))
	})

	t.Run("skips blank lines", func(t *testing.T) {
		path := writeCorpusFile(t, "\"a\"\n\n   \n\"b\"\n")

		c, err := Parse(path, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, messageStrings(c))
	})

	t.Run("one bad line falls back to bulk for the whole file", func(t *testing.T) {
		path := writeCorpusFile(t, "\"kept\" & not json\n")

		c, err := Parse(path, DefaultOptions())
		require.NoError(t, err)

		// Bulk mode sees the raw content, quotes included.
		assert.Equal(t, []string{"\"kept\"", "not json"}, messageStrings(c))
	})

	t.Run("plain text file parses in bulk mode", func(t *testing.T) {
		path := writeCorpusFile(t, "alpha & beta and gamma")

		c, err := Parse(path, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{"alpha", "beta", "gamma"}, messageStrings(c))
	})

	t.Run("empty file fails", func(t *testing.T) {
		path := writeCorpusFile(t, "")

		_, err := Parse(path, DefaultOptions())
		require.Error(t, err)
	})
}
