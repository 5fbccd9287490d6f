package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Session errors
var (
	ErrMachineNotFound       = errors.New("machine not found")
	ErrNotRunning            = errors.New("simulation is not running")
	ErrRunning               = errors.New("simulation is running")
	ErrReplayIndexOutOfRange = errors.New("replay index out of range")
	ErrSessionClosed         = errors.New("session is closed")
)

// DefaultAlertListSize caps the live alert list
const DefaultAlertListSize = 50

// Display modes
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

// SessionConfig tunes the tick loop and buffers
type SessionConfig struct {
	TickInterval     time.Duration
	HistorySize      int
	AlertListSize    int
	AlertProbability float64
}

// DefaultSessionConfig returns one tick per second with the standard buffer sizes
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TickInterval:     time.Second,
		HistorySize:      DefaultHistorySize,
		AlertListSize:    DefaultAlertListSize,
		AlertProbability: DefaultAlertProbability,
	}
}

// TickEvent describes one completed tick
type TickEvent struct {
	State     State   `json:"state"`
	NewAlerts []Alert `json:"newAlerts"`
	Recorded  bool    `json:"recorded"`
}

// TickListener is called after every tick, outside the session lock
type TickListener func(TickEvent)

// Snapshot is what a display consumer should render
type Snapshot struct {
	Mode          string  `json:"mode"`
	ReplayIndex   *int    `json:"replayIndex"`
	HistoryLength int     `json:"historyLength"`
	State         State   `json:"state"`
	Alerts        []Alert `json:"alerts"`
}

// Session owns one simulation: its state, live alerts, history, replay selection
// and tick timer. All mutations go through the session lock, one at a time.
type Session struct {
	mu        sync.Mutex
	cfg       SessionConfig
	ctx       context.Context
	noise     NoiseSource
	detector  *AlertDetector
	state     State
	alerts    []Alert
	history   *HistoryRecorder
	replay    ReplaySelector
	timer     *TaskHandle
	timerGen  uint64
	closed    bool
	listeners []TickListener
}

// NewSession creates a stopped session at the initial state. The tick timer only
// lives while the session is running and never outlives ctx.
func NewSession(ctx context.Context, cfg SessionConfig, noise NoiseSource) *Session {
	defaults := DefaultSessionConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = defaults.HistorySize
	}
	if cfg.AlertListSize < 1 {
		cfg.AlertListSize = defaults.AlertListSize
	}

	initial := InitialState()
	return &Session{
		cfg:      cfg,
		ctx:      ctx,
		noise:    noise,
		detector: NewAlertDetector(cfg.AlertProbability, noise),
		state:    initial,
		history:  NewHistoryRecorder(cfg.HistorySize, initial),
	}
}

// Detector exposes the alert detector so callers can swap its clock
func (s *Session) Detector() *AlertDetector {
	return s.detector
}

// OnTick registers a listener for completed ticks
func (s *Session) OnTick(listener TickListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Start sets the simulation running and acquires the tick timer
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.state.IsRunning {
		return nil
	}

	s.state.IsRunning = true
	s.timerGen++
	gen := s.timerGen
	s.timer = StartPeriodic(s.ctx, s.cfg.TickInterval, func() { s.onTimer(gen) })
	return nil
}

// Stop clears the running flag and releases the tick timer
func (s *Session) Stop() {
	s.mu.Lock()
	s.state.IsRunning = false
	timer := s.releaseTimerLocked()
	s.mu.Unlock()

	timer.Stop()
}

// Reset stops the timer and restores the initial state, alerts, history and live mode
func (s *Session) Reset() {
	s.mu.Lock()
	timer := s.releaseTimerLocked()
	initial := InitialState()
	s.state = initial
	s.alerts = nil
	s.history.Reset(initial)
	s.replay.Clear()
	s.mu.Unlock()

	timer.Stop()
}

// Close releases the timer for good; later Starts fail
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.state.IsRunning = false
	timer := s.releaseTimerLocked()
	s.mu.Unlock()

	timer.Stop()
}

// releaseTimerLocked detaches the timer; the caller stops it after unlocking,
// since a firing in progress may be waiting on the lock.
func (s *Session) releaseTimerLocked() *TaskHandle {
	timer := s.timer
	s.timer = nil
	s.timerGen++
	return timer
}

// Step runs exactly one tick now, whatever the running flag
func (s *Session) Step() TickEvent {
	s.mu.Lock()
	event := s.tickLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, event)
	return event
}

func (s *Session) onTimer(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || !s.state.IsRunning {
		// Fired after a stop or reset raced with this run
		s.mu.Unlock()
		return
	}
	event := s.tickLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, event)
}

// tickLocked runs the tick engine, alert detector and history recorder in order
func (s *Session) tickLocked() TickEvent {
	s.state = Tick(s.state, s.noise)

	var fresh []Alert
	if s.state.IsRunning {
		fresh = s.detector.Detect(s.state.Machines)
		if len(fresh) > 0 {
			s.alerts = prependAlerts(s.alerts, fresh, s.cfg.AlertListSize)
		}
	}

	recorded := s.history.Record(s.state, s.alerts)

	return TickEvent{
		State:     s.state.Clone(),
		NewAlerts: fresh,
		Recorded:  recorded,
	}
}

func notify(listeners []TickListener, event TickEvent) {
	for _, listener := range listeners {
		listener(event)
	}
}

// SetSpeed changes one machine's speed while the simulation is running
func (s *Session) SetSpeed(machineID string, speed float64) (Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsRunning {
		return Machine{}, ErrNotRunning
	}

	for i := range s.state.Machines {
		if s.state.Machines[i].ID == machineID {
			s.state.Machines[i].Speed = ClampSpeed(speed)
			return s.state.Machines[i], nil
		}
	}

	return Machine{}, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
}

// SetReplayIndex enters or moves replay mode; nil returns to live mode.
// The selection is frozen while the simulation runs.
func (s *Session) SetReplayIndex(index *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRunning {
		return ErrRunning
	}
	if index == nil {
		s.replay.Clear()
		return nil
	}
	return s.replay.Select(*index, s.history.Len())
}

// View returns the replayed snapshot when replay is active, else the live one
func (s *Session) View() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index := s.replay.Index(); index != nil {
		if entry, ok := s.history.At(*index); ok {
			return Snapshot{
				Mode:          ModeReplay,
				ReplayIndex:   index,
				HistoryLength: s.history.Len(),
				State:         entry.State.Clone(),
				Alerts:        copyAlerts(entry.Alerts),
			}
		}
	}

	return Snapshot{
		Mode:          ModeLive,
		HistoryLength: s.history.Len(),
		State:         s.state.Clone(),
		Alerts:        copyAlerts(s.alerts),
	}
}

// LiveState returns the current state, ignoring replay
func (s *Session) LiveState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Machine returns the live readings of one machine
func (s *Session) Machine(machineID string) (Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.state.Machine(machineID)
	if !ok {
		return Machine{}, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
	}
	return m, nil
}

// Alerts returns the live alert list, newest first
func (s *Session) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAlerts(s.alerts)
}

// History returns the snapshot log, oldest first
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// IsRunning reports the running flag
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsRunning
}

func copyAlerts(alerts []Alert) []Alert {
	out := make([]Alert, len(alerts))
	copy(out, alerts)
	return out
}
