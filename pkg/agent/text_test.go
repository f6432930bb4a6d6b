package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardenWhitespace(t *testing.T) {
	t.Run("replaces interior spaces", func(t *testing.T) {
		assert.Equal(t, "a b c", HardenWhitespace("a b c"))
	})

	t.Run("preserves newlines", func(t *testing.T) {
		assert.Equal(t, "one two\nthree four", HardenWhitespace("one two\nthree four"))
	})

	t.Run("leaves spaceless text alone", func(t *testing.T) {
		assert.Equal(t, "untouched", HardenWhitespace("untouched"))
	})

	t.Run("empty line survives", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", HardenWhitespace("a\n\nb"))
	})
}
