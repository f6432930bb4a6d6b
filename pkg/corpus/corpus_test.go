package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpus(t *testing.T) {
	t.Run("empty corpus is rejected", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("cursor wraps past the end", func(t *testing.T) {
		c, err := New([]Message{"a", "b", "c"})
		require.NoError(t, err)

		i := 0
		var seen []string
		for range make([]struct{}, 7) {
			seen = append(seen, string(c.At(i)))
			i = c.Next(i)
		}

		assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, seen)
		assert.Equal(t, 1, i)
	})

	t.Run("single message wraps to itself", func(t *testing.T) {
		c, err := New([]Message{"only"})
		require.NoError(t, err)

		assert.Equal(t, 0, c.Next(0))
	})

	t.Run("corpus is insulated from caller mutation", func(t *testing.T) {
		src := []Message{"a", "b"}
		c, err := New(src)
		require.NoError(t, err)

		src[0] = "mutated"
		assert.Equal(t, Message("a"), c.At(0))

		out := c.Messages()
		out[1] = "mutated"
		assert.Equal(t, Message("b"), c.At(1))
	})
}
