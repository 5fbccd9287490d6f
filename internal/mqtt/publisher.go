package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// TelemetryTopicPattern is appended to the configured prefix
const TelemetryTopicPattern = "machines/{machine_id}/telemetry"

// TelemetryMessage is the per-machine payload of one tick
type TelemetryMessage struct {
	MachineID   string            `json:"machineId"`
	Name        string            `json:"name"`
	Status      simulation.Status `json:"status"`
	Temperature float64           `json:"temperature"`
	Load        float64           `json:"load"`
	Speed       float64           `json:"speed"`
	SimTime     int               `json:"simTime"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Publisher publishes tick telemetry from a buffered channel
type Publisher struct {
	client  paho.Client
	pattern string
	qos     byte
	logger  *utils.Logger
	events  chan simulation.TickEvent
	now     func() time.Time
}

// NewPublisher creates a publisher writing under prefix
func NewPublisher(client paho.Client, prefix string, qos byte, logger *utils.Logger) *Publisher {
	pattern := TelemetryTopicPattern
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		pattern = prefix + "/" + pattern
	}

	return &Publisher{
		client:  client,
		pattern: pattern,
		qos:     qos,
		logger:  logger.Named("mqtt_publisher"),
		events:  make(chan simulation.TickEvent, 16),
		now:     time.Now,
	}
}

// Enqueue hands a tick to the publish loop; it drops the tick when the loop is behind
func (p *Publisher) Enqueue(event simulation.TickEvent) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Telemetry queue full, dropping tick", zap.Int("time", event.State.Time))
	}
}

// Start publishes queued ticks until ctx is cancelled
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("Starting telemetry publisher", zap.String("pattern", p.pattern))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Telemetry publisher stopped")
			return

		case event := <-p.events:
			if err := p.Publish(event); err != nil {
				p.logger.Error("Failed to publish telemetry", zap.Error(err))
			}
		}
	}
}

// Publish sends one message per machine of event
func (p *Publisher) Publish(event simulation.TickEvent) error {
	now := p.now().UTC()

	for _, m := range event.State.Machines {
		payload, err := json.Marshal(TelemetryMessage{
			MachineID:   m.ID,
			Name:        m.Name,
			Status:      m.Status,
			Temperature: m.Temperature,
			Load:        m.Load,
			Speed:       m.Speed,
			SimTime:     event.State.Time,
			Timestamp:   now,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal telemetry: %w", err)
		}

		topic := formatTopic(p.pattern, m.ID)
		token := p.client.Publish(topic, p.qos, false, payload)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
		}
	}

	return nil
}

// formatTopic replaces the {machine_id} placeholder
func formatTopic(pattern, machineID string) string {
	return strings.ReplaceAll(pattern, "{machine_id}", machineID)
}
