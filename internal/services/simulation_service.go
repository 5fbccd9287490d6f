package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// Control actions reported to control listeners
const (
	ControlStart  = "start"
	ControlStop   = "stop"
	ControlReset  = "reset"
	ControlReplay = "replay"
)

// ControlEvent reports a state change made through the service
type ControlEvent struct {
	Action string              `json:"action"`
	View   simulation.Snapshot `json:"view"`
}

// ControlListener receives control events
type ControlListener func(ControlEvent)

// SimulationService owns the single simulation session and its prediction gateway
type SimulationService struct {
	session *simulation.Session
	gateway *prediction.Gateway
	logger  *utils.Logger
	now     func() time.Time

	mu       sync.RWMutex
	controls []ControlListener
}

// NewSimulationService creates a stopped session. The tick timer never outlives ctx.
func NewSimulationService(
	ctx context.Context,
	cfg config.SimulationConfig,
	gateway *prediction.Gateway,
	logger *utils.Logger,
) *SimulationService {
	sessionCfg := simulation.SessionConfig{
		TickInterval:     cfg.TickInterval(),
		HistorySize:      cfg.HistorySize,
		AlertListSize:    cfg.AlertListSize,
		AlertProbability: cfg.AlertProbability,
	}

	return &SimulationService{
		session: simulation.NewSession(ctx, sessionCfg, simulation.NewNoiseSource(cfg.Seed)),
		gateway: gateway,
		logger:  logger.Named("simulation_service"),
		now:     time.Now,
	}
}

// OnTick registers a tick listener
func (s *SimulationService) OnTick(listener simulation.TickListener) {
	s.session.OnTick(listener)
}

// OnPrediction registers a prediction event listener
func (s *SimulationService) OnPrediction(listener prediction.Listener) {
	s.gateway.OnEvent(listener)
}

// OnControl registers a control event listener
func (s *SimulationService) OnControl(listener ControlListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append(s.controls, listener)
}

func (s *SimulationService) emitControl(action string) {
	s.mu.RLock()
	listeners := s.controls
	s.mu.RUnlock()

	if len(listeners) == 0 {
		return
	}
	event := ControlEvent{Action: action, View: s.session.View()}
	for _, listener := range listeners {
		listener(event)
	}
}

// View returns the displayed snapshot
func (s *SimulationService) View() simulation.Snapshot {
	return s.session.View()
}

// Start sets the simulation running
func (s *SimulationService) Start() error {
	if err := s.session.Start(); err != nil {
		return mapSimulationError(err)
	}
	s.logger.Info("Simulation started")
	s.emitControl(ControlStart)
	return nil
}

// Stop halts the tick timer
func (s *SimulationService) Stop() {
	s.session.Stop()
	s.logger.Info("Simulation stopped")
	s.emitControl(ControlStop)
}

// Reset restores the initial state and drops the current prediction
func (s *SimulationService) Reset() {
	s.session.Reset()
	s.gateway.Clear()
	s.logger.Info("Simulation reset")
	s.emitControl(ControlReset)
}

// Step runs one tick immediately
func (s *SimulationService) Step() simulation.TickEvent {
	return s.session.Step()
}

// Machines returns the registry with live readings
func (s *SimulationService) Machines() []simulation.Machine {
	return s.session.LiveState().Machines
}

// SetSpeed changes one machine's speed while running
func (s *SimulationService) SetSpeed(machineID string, speed float64) (simulation.Machine, error) {
	m, err := s.session.SetSpeed(machineID, speed)
	if err != nil {
		return simulation.Machine{}, mapSimulationError(err)
	}

	s.logger.Debug("Machine speed set",
		zap.String("machine_id", machineID),
		zap.Float64("requested", speed),
		zap.Float64("applied", m.Speed),
	)
	return m, nil
}

// History returns the snapshot log, oldest first
func (s *SimulationService) History() []simulation.HistoryEntry {
	return s.session.History()
}

// Alerts returns the live alert list, newest first
func (s *SimulationService) Alerts() []simulation.Alert {
	return s.session.Alerts()
}

// SetReplayIndex selects a history entry for display; nil returns to live mode
func (s *SimulationService) SetReplayIndex(index *int) error {
	if err := s.session.SetReplayIndex(index); err != nil {
		return mapSimulationError(err)
	}
	s.emitControl(ControlReplay)
	return nil
}

// Predict requests a failure prediction from a machine's live readings
func (s *SimulationService) Predict(ctx context.Context, machineID string) (*prediction.Prediction, error) {
	m, err := s.session.Machine(machineID)
	if err != nil {
		return nil, mapSimulationError(err)
	}

	result, err := s.gateway.Request(ctx, machineID, prediction.Input{
		Temperature: m.Temperature,
		Load:        m.Load,
		Speed:       m.Speed,
		Timestamp:   s.now().UTC(),
	})
	if errors.Is(err, prediction.ErrSuperseded) {
		return nil, fmt.Errorf("%w: %w", utils.ErrConflict, err)
	}
	return result, err
}

// PredictionState returns the pending flag and current prediction
func (s *SimulationService) PredictionState() prediction.State {
	return s.gateway.State()
}

// Close stops the session for good
func (s *SimulationService) Close() {
	s.session.Close()
}

// mapSimulationError wraps session errors with the API error kinds
func mapSimulationError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, simulation.ErrMachineNotFound):
		return fmt.Errorf("%w: %w", utils.ErrNotFound, err)
	case errors.Is(err, simulation.ErrNotRunning), errors.Is(err, simulation.ErrRunning):
		return fmt.Errorf("%w: %w", utils.ErrConflict, err)
	case errors.Is(err, simulation.ErrReplayIndexOutOfRange):
		return fmt.Errorf("%w: %w", utils.ErrBadRequest, err)
	case errors.Is(err, simulation.ErrSessionClosed):
		return fmt.Errorf("%w: %w", utils.ErrServiceUnavailable, err)
	default:
		return err
	}
}
