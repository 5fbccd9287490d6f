package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// Topic constants for the application
const (
	TopicTwinState         = "twin-state"
	TopicAlerts            = "alerts"
	TopicMLOutput          = "ml-output"
	TopicSimulationControl = "simulation-control"
)

// Manager coordinates Kafka producers and consumers
type Manager struct {
	config           *config.KafkaConfig
	logger           *utils.Logger
	mainProducer     *Producer
	dlqProducer      *Producer
	consumers        map[string]*Consumer
	consumerCtx      context.Context
	consumerCancel   context.CancelFunc
	wg               sync.WaitGroup
	mu               sync.Mutex
	isRunning        bool
	closed           bool
	messageProcessed chan struct{}
	now              func() time.Time
}

// NewManager creates a new Kafka manager
func NewManager(cfg *config.KafkaConfig, logger *utils.Logger) (*Manager, error) {
	kafkaLogger := logger.Named("kafka_manager")

	mainProducer, err := NewProducer(cfg, kafkaLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create main producer: %w", err)
	}

	dlqProducer, err := NewProducer(cfg, kafkaLogger)
	if err != nil {
		mainProducer.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:           cfg,
		logger:           kafkaLogger,
		mainProducer:     mainProducer,
		dlqProducer:      dlqProducer,
		consumers:        make(map[string]*Consumer),
		consumerCtx:      ctx,
		consumerCancel:   cancel,
		messageProcessed: make(chan struct{}, 100),
		now:              time.Now,
	}, nil
}

// Start starts all registered consumers
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("kafka manager is already running")
	}

	for name, consumer := range m.consumers {
		m.logger.Info("Starting consumer", zap.String("name", name))
		if err := consumer.Start(m.consumerCtx); err != nil {
			m.logger.Error("Failed to start consumer",
				zap.String("name", name),
				zap.Error(err))
			m.stopAllConsumers()
			return fmt.Errorf("failed to start consumer %s: %w", name, err)
		}
	}

	m.wg.Add(1)
	go m.monitorProcessing()

	m.isRunning = true
	m.logger.Info("Kafka manager started")
	return nil
}

// AddConsumer creates and registers a consumer with specific handlers
func (m *Manager) AddConsumer(name string, handlers map[string][]MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("cannot add consumer while manager is running")
	}

	if _, exists := m.consumers[name]; exists {
		return fmt.Errorf("consumer with name %s already exists", name)
	}

	consumer, err := NewConsumer(m.config, m.logger, m.dlqProducer)
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", name, err)
	}

	topics := make([]string, 0, len(handlers))
	for topic, topicHandlers := range handlers {
		topics = append(topics, topic)
		for _, handler := range topicHandlers {
			consumer.RegisterHandler(topic, m.wrapHandler(handler))
		}
	}

	m.consumers[name] = consumer
	m.logger.Info("Added consumer",
		zap.String("name", name),
		zap.Strings("topics", topics))

	return nil
}

// wrapHandler wraps a message handler to signal when processing is complete
func (m *Manager) wrapHandler(handler MessageHandler) MessageHandler {
	return func(msg *kafka.Message) error {
		defer func() {
			select {
			case m.messageProcessed <- struct{}{}:
			default:
				// Buffer full; the count is approximate under load
			}
		}()

		return handler(msg)
	}
}

// ProduceMessage sends a message to the specified topic
func (m *Manager) ProduceMessage(topic string, key string, value interface{}, headers map[string]string) error {
	message := &Message{
		Key:       key,
		Value:     value,
		Timestamp: m.now(),
		Headers:   headers,
	}

	return m.mainProducer.Produce(topic, message)
}

// PublishSnapshot publishes one tick's machine readings
func (m *Manager) PublishSnapshot(event simulation.TickEvent) error {
	return m.ProduceMessage(TopicTwinState, "simulation", NewSnapshotMessage(event, m.now()), nil)
}

// PublishAlerts publishes fresh alerts, keyed by machine
func (m *Manager) PublishAlerts(alerts []simulation.Alert, simTime int) error {
	for _, alert := range alerts {
		msg := AlertMessage{Alert: alert, SimTime: simTime}
		if err := m.ProduceMessage(TopicAlerts, alert.MachineID, msg, map[string]string{
			"severity": string(alert.Severity),
		}); err != nil {
			return err
		}
	}
	return nil
}

// PublishPrediction publishes a settled prediction; pending events are skipped
func (m *Manager) PublishPrediction(event prediction.Event) error {
	msg, ok := NewPredictionMessage(event, m.now())
	if !ok {
		return nil
	}
	return m.ProduceMessage(TopicMLOutput, event.MachineID, msg, nil)
}

// SendControlCommand publishes a control command and waits for delivery
func (m *Manager) SendControlCommand(cmd ControlCommand) error {
	return m.mainProducer.ProduceSync(TopicSimulationControl, &Message{
		Key:       cmd.Action,
		Value:     cmd,
		Timestamp: m.now(),
	})
}

// RegisterControlHandler consumes simulation control commands
func (m *Manager) RegisterControlHandler(name string, handler func(ControlCommand) error) error {
	msgHandler := func(msg *kafka.Message) error {
		cmd, err := DecodeControlCommand(msg.Value)
		if err != nil {
			return err
		}
		return handler(cmd)
	}

	return m.AddConsumer(
		fmt.Sprintf("%s-simulation-control", name),
		map[string][]MessageHandler{
			TopicSimulationControl: {msgHandler},
		},
	)
}

// monitorProcessing tracks and logs message processing metrics
func (m *Manager) monitorProcessing() {
	defer m.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	messageCount := 0

	for {
		select {
		case <-m.consumerCtx.Done():
			m.logger.Info("Message processing monitor stopped")
			return

		case <-m.messageProcessed:
			messageCount++

		case <-ticker.C:
			if messageCount > 0 {
				m.logger.Info("Message processing statistics",
					zap.Int("processed_messages", messageCount),
					zap.String("interval", "1m"))
				messageCount = 0
			}
		}
	}
}

// stopAllConsumers stops all consumers
func (m *Manager) stopAllConsumers() {
	for name, consumer := range m.consumers {
		m.logger.Info("Stopping consumer", zap.String("name", name))
		if err := consumer.Close(); err != nil {
			m.logger.Warn("Failed to close consumer", zap.String("name", name), zap.Error(err))
		}
	}
}

// Close stops the consumers and flushes and closes the producers. It is safe to
// call whether or not Start was called, and more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	m.consumerCancel()
	m.stopAllConsumers()
	m.consumers = make(map[string]*Consumer)
	m.wg.Wait()

	m.mainProducer.Close()
	m.dlqProducer.Close()

	m.isRunning = false
	m.logger.Info("Kafka manager stopped")
}

// IsRunning returns whether the Kafka manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}
