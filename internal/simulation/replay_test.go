package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySelector_Bounds(t *testing.T) {
	var r ReplaySelector
	assert.False(t, r.Active())
	assert.Nil(t, r.Index())

	assert.ErrorIs(t, r.Select(-1, 3), ErrReplayIndexOutOfRange)
	assert.ErrorIs(t, r.Select(3, 3), ErrReplayIndexOutOfRange)
	assert.False(t, r.Active())

	require.NoError(t, r.Select(2, 3))
	assert.True(t, r.Active())
	assert.Equal(t, 2, *r.Index())

	r.Clear()
	assert.False(t, r.Active())
}

func TestReplaySelector_IndexIsACopy(t *testing.T) {
	var r ReplaySelector
	require.NoError(t, r.Select(0, 1))

	idx := r.Index()
	*idx = 5

	assert.Equal(t, 0, *r.Index())
}
