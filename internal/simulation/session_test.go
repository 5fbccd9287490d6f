package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newManualSession returns a session whose timer never fires during a test
func newManualSession(t *testing.T, noise NoiseSource) *Session {
	t.Helper()

	cfg := DefaultSessionConfig()
	cfg.TickInterval = time.Hour
	s := NewSession(context.Background(), cfg, noise)
	s.Detector().WithClock(fixedClock)
	t.Cleanup(s.Close)
	return s
}

func TestSession_InitialView(t *testing.T) {
	s := newManualSession(t, zeroNoise)

	view := s.View()

	assert.Equal(t, ModeLive, view.Mode)
	assert.Nil(t, view.ReplayIndex)
	assert.Equal(t, 1, view.HistoryLength)
	assert.Equal(t, InitialState(), view.State)
	assert.Empty(t, view.Alerts)
	assert.False(t, s.IsRunning())
}

func TestSession_StartThenStep(t *testing.T) {
	s := newManualSession(t, zeroNoise)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "start is idempotent")
	assert.True(t, s.IsRunning())

	event := s.Step()

	assert.True(t, event.Recorded)
	assert.Equal(t, 1, event.State.Time)
	assert.InDelta(t, 24.8, machineByID(t, event.State, "cnc-1").Temperature, 1e-9)
	assert.Equal(t, StatusRunning, machineByID(t, event.State, "cnc-1").Status)
	assert.Len(t, s.History(), 2)
}

func TestSession_StepWhileStoppedCoolsWithoutRecording(t *testing.T) {
	noise := &seqSource{}
	s := newManualSession(t, noise)

	event := s.Step()

	assert.False(t, event.Recorded)
	assert.Empty(t, event.NewAlerts)
	assert.Equal(t, 1, event.State.Time)
	assert.Equal(t, 24.5, machineByID(t, event.State, "cnc-1").Temperature)
	assert.Len(t, s.History(), 1)
	assert.Zero(t, noise.drawn)
}

func TestSession_TimerTicksUntilStopped(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.TickInterval = 5 * time.Millisecond
	s := NewSession(context.Background(), cfg, zeroNoise)
	t.Cleanup(s.Close)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return s.LiveState().Time >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	frozen := s.LiveState().Time
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, frozen, s.LiveState().Time)
	assert.False(t, s.IsRunning())
}

func TestSession_StaleTimerFiringIsIgnored(t *testing.T) {
	s := newManualSession(t, zeroNoise)
	require.NoError(t, s.Start())

	s.onTimer(0)

	assert.Equal(t, 0, s.LiveState().Time)
}

func TestSession_Reset(t *testing.T) {
	s := newManualSession(t, constSource(0))
	require.NoError(t, s.Start())
	for i := 0; i < 5; i++ {
		s.Step()
	}
	s.Stop()
	require.NoError(t, s.SetReplayIndex(intPtr(2)))

	s.Reset()

	view := s.View()
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, InitialState(), view.State)
	assert.Empty(t, view.Alerts)
	assert.Equal(t, 1, view.HistoryLength)
	assert.False(t, s.IsRunning())
}

func TestSession_ResetWhileRunningStopsTimer(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.TickInterval = 5 * time.Millisecond
	s := NewSession(context.Background(), cfg, zeroNoise)
	t.Cleanup(s.Close)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return s.LiveState().Time >= 1
	}, time.Second, 5*time.Millisecond)

	s.Reset()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, InitialState(), s.LiveState())
}

func TestSession_HistoryWindow(t *testing.T) {
	s := newManualSession(t, zeroNoise)
	require.NoError(t, s.Start())

	for i := 0; i < 300; i++ {
		s.Step()
	}
	history := s.History()
	require.Len(t, history, DefaultHistorySize)
	assert.Equal(t, 1, history[0].Time)

	s.Step()
	history = s.History()
	require.Len(t, history, DefaultHistorySize)
	assert.Equal(t, 2, history[0].Time)
	assert.Equal(t, 301, history[len(history)-1].Time)
}

func TestSession_Replay(t *testing.T) {
	s := newManualSession(t, zeroNoise)
	require.NoError(t, s.Start())
	for i := 0; i < 3; i++ {
		s.Step()
	}

	assert.ErrorIs(t, s.SetReplayIndex(intPtr(1)), ErrRunning)

	s.Stop()
	assert.ErrorIs(t, s.SetReplayIndex(intPtr(4)), ErrReplayIndexOutOfRange)
	assert.ErrorIs(t, s.SetReplayIndex(intPtr(-1)), ErrReplayIndexOutOfRange)

	require.NoError(t, s.SetReplayIndex(intPtr(1)))
	view := s.View()
	assert.Equal(t, ModeReplay, view.Mode)
	require.NotNil(t, view.ReplayIndex)
	assert.Equal(t, 1, *view.ReplayIndex)
	assert.Equal(t, 1, view.State.Time)
	assert.Equal(t, 4, view.HistoryLength)
	assert.Equal(t, 3, s.LiveState().Time, "replay does not touch the live state")

	require.NoError(t, s.SetReplayIndex(nil))
	assert.Equal(t, ModeLive, s.View().Mode)
}

func TestSession_SetSpeed(t *testing.T) {
	s := newManualSession(t, zeroNoise)

	_, err := s.SetSpeed("cnc-1", 1000)
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, s.Start())

	_, err = s.SetSpeed("lathe-9", 1000)
	assert.ErrorIs(t, err, ErrMachineNotFound)

	m, err := s.SetSpeed("cnc-1", 9000)
	require.NoError(t, err)
	assert.Equal(t, MaxSpeed, m.Speed)
	assert.Equal(t, StatusIdle, m.Status, "status waits for the next tick")

	m, err = s.SetSpeed("conveyor-1", -10)
	require.NoError(t, err)
	assert.Equal(t, MinSpeed, m.Speed)

	live, err := s.Machine("cnc-1")
	require.NoError(t, err)
	assert.Equal(t, MaxSpeed, live.Speed)
}

func TestSession_AlertListIsCappedNewestFirst(t *testing.T) {
	s := newManualSession(t, constSource(0))
	s.mu.Lock()
	s.state.IsRunning = true
	for i := range s.state.Machines {
		s.state.Machines[i].Temperature = 110
		s.state.Machines[i].Load = 500
		s.state.Machines[i].Speed = MaxSpeed
	}
	s.mu.Unlock()

	first := s.Step()
	require.Len(t, first.NewAlerts, 9)

	var last TickEvent
	for i := 0; i < 5; i++ {
		last = s.Step()
	}

	alerts := s.Alerts()
	require.Len(t, alerts, DefaultAlertListSize)
	assert.Equal(t, last.NewAlerts[0].ID, alerts[0].ID)
	assert.Equal(t, first.NewAlerts[4].ID, alerts[len(alerts)-1].ID, "the oldest alerts fall off the end")
}

func TestSession_ListenersSeeEveryTick(t *testing.T) {
	s := newManualSession(t, zeroNoise)

	var mu sync.Mutex
	var events []TickEvent
	s.OnTick(func(event TickEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})

	s.Step()
	require.NoError(t, s.Start())
	s.Step()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.False(t, events[0].Recorded)
	assert.True(t, events[1].Recorded)
}

func TestSession_ClosedRejectsStart(t *testing.T) {
	s := NewSession(context.Background(), DefaultSessionConfig(), zeroNoise)
	s.Close()

	assert.ErrorIs(t, s.Start(), ErrSessionClosed)
	assert.False(t, s.IsRunning())
}

func intPtr(v int) *int { return &v }
