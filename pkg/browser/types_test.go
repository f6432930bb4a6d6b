package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("socket closed")
	err := &Error{Code: ErrCodeConnection, Message: "page gone", Err: cause}

	assert.Equal(t, "CONNECTION: page gone", err.Error())
	assert.ErrorIs(t, err, cause)

	t.Run("IsCode matches the code", func(t *testing.T) {
		assert.True(t, IsCode(err, ErrCodeConnection))
		assert.False(t, IsCode(err, ErrCodeAuth))
		assert.False(t, IsCode(errors.New("plain"), ErrCodeConnection))
	})

	t.Run("wrapped errors keep their code reachable", func(t *testing.T) {
		wrapped := fmt.Errorf("login: %w", &Error{Code: ErrCodeAuth, Message: "rejected"})

		var be *Error
		require.ErrorAs(t, wrapped, &be)
		assert.Equal(t, ErrCodeAuth, be.Code)
	})
}
