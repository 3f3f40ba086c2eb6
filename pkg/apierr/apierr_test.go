package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMessageTable(t *testing.T) {
	codes := []int{400, 401, 403, 404, 429, 500, 502, 503, 504}
	seen := make(map[string]bool)
	for _, c := range codes {
		msg := StatusMessage(c)
		assert.NotEqual(t, genericMessage, msg, "status %d", c)
		assert.False(t, seen[msg], "status %d reuses a message", c)
		seen[msg] = true
	}
	assert.Equal(t, genericMessage, StatusMessage(418))
	assert.Equal(t, genericMessage, StatusMessage(599))
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("send: %w", Status(http.StatusTooManyRequests))

	assert.True(t, errors.Is(err, ErrAPI))
	assert.False(t, errors.Is(err, ErrRateLimit))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, 429, e.Status)
	assert.Equal(t, KindAPI, KindOf(err))
}

func TestUnwrapCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(KindNetwork, "network failure", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, Kind(""), KindOf(cause))
}
