package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningAt(tick int) State {
	s := InitialState()
	s.IsRunning = true
	s.Time = tick
	return s
}

func TestHistoryRecorder_StartsWithInitialSnapshot(t *testing.T) {
	r := NewHistoryRecorder(DefaultHistorySize, InitialState())

	require.Equal(t, 1, r.Len())
	entry, ok := r.At(0)
	require.True(t, ok)
	assert.Equal(t, 0, entry.Time)
	assert.False(t, entry.IsRunning)
	assert.Empty(t, entry.Alerts)
}

func TestHistoryRecorder_IgnoresStoppedStates(t *testing.T) {
	r := NewHistoryRecorder(DefaultHistorySize, InitialState())

	assert.False(t, r.Record(InitialState(), nil))
	assert.True(t, r.Record(runningAt(1), nil))
	assert.Equal(t, 2, r.Len())
}

func TestHistoryRecorder_EvictsOldestBeyondLimit(t *testing.T) {
	r := NewHistoryRecorder(DefaultHistorySize, InitialState())

	for tick := 1; tick <= 300; tick++ {
		r.Record(runningAt(tick), nil)
		require.LessOrEqual(t, r.Len(), DefaultHistorySize)
	}

	require.Equal(t, 300, r.Len())
	oldest, _ := r.At(0)
	assert.Equal(t, 1, oldest.Time, "initial snapshot is evicted once 300 ticks are recorded")

	r.Record(runningAt(301), nil)
	require.Equal(t, 300, r.Len())
	oldest, _ = r.At(0)
	newest, _ := r.At(299)
	assert.Equal(t, 2, oldest.Time)
	assert.Equal(t, 301, newest.Time)

	entries := r.Entries()
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].Time+1, entries[i].Time)
	}
}

func TestHistoryRecorder_SnapshotsAreIsolated(t *testing.T) {
	r := NewHistoryRecorder(DefaultHistorySize, InitialState())
	state := runningAt(1)
	alerts := []Alert{{ID: "a"}}

	r.Record(state, alerts)
	state.Machines[0].Temperature = 99
	alerts[0].ID = "changed"

	entry, _ := r.At(1)
	assert.Equal(t, 25.0, entry.Machines[0].Temperature)
	assert.Equal(t, "a", entry.Alerts[0].ID)
}

func TestHistoryRecorder_Reset(t *testing.T) {
	r := NewHistoryRecorder(5, InitialState())
	for tick := 1; tick <= 10; tick++ {
		r.Record(runningAt(tick), []Alert{{ID: "x"}})
	}

	r.Reset(InitialState())

	require.Equal(t, 1, r.Len())
	entry, _ := r.At(0)
	assert.Equal(t, 0, entry.Time)
	assert.Empty(t, entry.Alerts)

	_, ok := r.At(1)
	assert.False(t, ok)
	_, ok = r.At(-1)
	assert.False(t, ok)
}
