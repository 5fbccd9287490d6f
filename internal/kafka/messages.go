package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
)

// SnapshotMessage is published to TopicTwinState after every tick
type SnapshotMessage struct {
	Time      int                  `json:"time"`
	IsRunning bool                 `json:"isRunning"`
	Recorded  bool                 `json:"recorded"`
	Machines  []simulation.Machine `json:"machines"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewSnapshotMessage builds the twin state message of one tick
func NewSnapshotMessage(event simulation.TickEvent, now time.Time) SnapshotMessage {
	return SnapshotMessage{
		Time:      event.State.Time,
		IsRunning: event.State.IsRunning,
		Recorded:  event.Recorded,
		Machines:  event.State.Machines,
		Timestamp: now.UTC(),
	}
}

// AlertMessage is published to TopicAlerts, keyed by machine ID
type AlertMessage struct {
	simulation.Alert
	SimTime int `json:"simTime"`
}

// PredictionMessage is published to TopicMLOutput for every settled prediction
type PredictionMessage struct {
	Seq        uint64                 `json:"seq"`
	MachineID  string                 `json:"machineId"`
	Prediction *prediction.Prediction `json:"prediction,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewPredictionMessage converts a settled gateway event. Pending events yield false.
func NewPredictionMessage(event prediction.Event, now time.Time) (PredictionMessage, bool) {
	if event.Type == prediction.EventPending {
		return PredictionMessage{}, false
	}
	return PredictionMessage{
		Seq:        event.Seq,
		MachineID:  event.MachineID,
		Prediction: event.Prediction,
		Error:      event.Error,
		Timestamp:  now.UTC(),
	}, true
}

// Control actions accepted on TopicSimulationControl
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionReset    = "reset"
	ActionStep     = "step"
	ActionSetSpeed = "set_speed"
)

// ControlCommand drives the simulation from the bus
type ControlCommand struct {
	Action    string   `json:"action" validate:"required,oneof=start stop reset step set_speed"`
	MachineID string   `json:"machineId,omitempty" validate:"required_if=Action set_speed"`
	Speed     *float64 `json:"speed,omitempty" validate:"required_if=Action set_speed"`
}

var commandValidator = validator.New()

// DecodeControlCommand parses and checks a control message
func DecodeControlCommand(data []byte) (ControlCommand, error) {
	var cmd ControlCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return ControlCommand{}, fmt.Errorf("failed to unmarshal control command: %w", err)
	}

	if err := cmd.Validate(); err != nil {
		return ControlCommand{}, err
	}

	return cmd, nil
}

// Validate checks the action and its required arguments
func (c ControlCommand) Validate() error {
	if err := commandValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid control command: %w", err)
	}
	return nil
}
