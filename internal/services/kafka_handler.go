package services

import (
	"fmt"

	"github.com/twinvision/backend/internal/kafka"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// eventPublisher is the outbound side of the Kafka manager
type eventPublisher interface {
	PublishSnapshot(event simulation.TickEvent) error
	PublishAlerts(alerts []simulation.Alert, simTime int) error
	PublishPrediction(event prediction.Event) error
}

// KafkaHandler bridges the simulation and the Kafka bus
type KafkaHandler struct {
	logger       *utils.Logger
	kafkaManager *kafka.Manager
	publisher    eventPublisher
	simulation   *SimulationService
}

// NewKafkaHandler creates a new Kafka bridge
func NewKafkaHandler(
	logger *utils.Logger,
	kafkaManager *kafka.Manager,
	simulationService *SimulationService,
) *KafkaHandler {
	return &KafkaHandler{
		logger:       logger.Named("kafka_handler"),
		kafkaManager: kafkaManager,
		publisher:    kafkaManager,
		simulation:   simulationService,
	}
}

// Initialize registers the control consumer and the outbound listeners
func (h *KafkaHandler) Initialize() error {
	if err := h.kafkaManager.RegisterControlHandler("twinvision", h.handleControl); err != nil {
		return fmt.Errorf("failed to register control handler: %w", err)
	}

	h.simulation.OnTick(h.handleTick)
	h.simulation.OnPrediction(h.handlePrediction)

	return nil
}

// handleTick forwards the snapshot and new alerts of one tick
func (h *KafkaHandler) handleTick(event simulation.TickEvent) {
	if err := h.publisher.PublishSnapshot(event); err != nil {
		h.logger.Error("Failed to publish snapshot", zap.Int("time", event.State.Time), zap.Error(err))
	}

	if len(event.NewAlerts) == 0 {
		return
	}
	if err := h.publisher.PublishAlerts(event.NewAlerts, event.State.Time); err != nil {
		h.logger.Error("Failed to publish alerts", zap.Int("count", len(event.NewAlerts)), zap.Error(err))
	}
}

// handlePrediction forwards settled predictions
func (h *KafkaHandler) handlePrediction(event prediction.Event) {
	if err := h.publisher.PublishPrediction(event); err != nil {
		h.logger.Error("Failed to publish prediction",
			zap.Uint64("seq", event.Seq),
			zap.String("machine_id", event.MachineID),
			zap.Error(err))
	}
}

// handleControl applies a control command from the bus
func (h *KafkaHandler) handleControl(cmd kafka.ControlCommand) error {
	h.logger.Info("Received control command",
		zap.String("action", cmd.Action),
		zap.String("machine_id", cmd.MachineID))

	switch cmd.Action {
	case kafka.ActionStart:
		return h.simulation.Start()
	case kafka.ActionStop:
		h.simulation.Stop()
	case kafka.ActionReset:
		h.simulation.Reset()
	case kafka.ActionStep:
		h.simulation.Step()
	case kafka.ActionSetSpeed:
		if cmd.Speed == nil {
			return fmt.Errorf("%w: speed is required", utils.ErrValidation)
		}
		_, err := h.simulation.SetSpeed(cmd.MachineID, *cmd.Speed)
		return err
	default:
		return fmt.Errorf("%w: unknown action %q", utils.ErrValidation, cmd.Action)
	}
	return nil
}
