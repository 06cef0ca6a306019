package pending

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_RejectsSecondStart(t *testing.T) {
	var g Guard

	done, ok := g.TryStart()
	require.True(t, ok)
	assert.True(t, g.Busy())

	_, ok = g.TryStart()
	assert.False(t, ok)

	done()
	done() // second call is a no-op
	assert.False(t, g.Busy())

	_, ok = g.TryStart()
	assert.True(t, ok)
}

func TestGuard_Run(t *testing.T) {
	var g Guard
	boom := errors.New("boom")

	err := g.Run(func() error {
		assert.ErrorIs(t, g.Run(func() error { return nil }), ErrPending)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, g.Busy())
}
