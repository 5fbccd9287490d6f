package services

import (
	"context"
	"fmt"

	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/db"
	"github.com/twinvision/backend/internal/kafka"
	"github.com/twinvision/backend/internal/mqtt"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// ServiceProvider manages all services for the application
type ServiceProvider struct {
	logger            *utils.Logger
	config            *config.Config
	database          *db.Database
	predictor         prediction.Predictor
	kafkaManager      *kafka.Manager
	kafkaHandler      *KafkaHandler
	mqttClient        *mqtt.Client
	simulationService *SimulationService
	predictionService *PredictionService
	streamService     *StreamService
	archiveService    *ArchiveService
	cancel            context.CancelFunc
}

// NewServiceProvider creates a new service provider. database is nil when the
// archive is disabled.
func NewServiceProvider(
	logger *utils.Logger,
	config *config.Config,
	database *db.Database,
) *ServiceProvider {
	return &ServiceProvider{
		logger:   logger.Named("services"),
		config:   config,
		database: database,
	}
}

// WithPredictor replaces the hosted model predictor
func (sp *ServiceProvider) WithPredictor(predictor prediction.Predictor) *ServiceProvider {
	sp.predictor = predictor
	return sp
}

// Initialize initializes all services. Background work stops when ctx ends or
// Shutdown is called.
func (sp *ServiceProvider) Initialize(ctx context.Context) error {
	ctx, sp.cancel = context.WithCancel(ctx)

	if sp.predictor == nil {
		predictor, err := prediction.NewGeminiPredictor(sp.config.Prediction, sp.logger)
		if err != nil {
			return fmt.Errorf("failed to create predictor: %w", err)
		}
		sp.predictor = predictor
		if sp.config.Prediction.APIKey == "" {
			sp.logger.Warn("No prediction API key configured; prediction requests will fail")
		}
	}

	gateway := prediction.NewGateway(sp.predictor, sp.logger)
	sp.simulationService = NewSimulationService(ctx, sp.config.Simulation, gateway, sp.logger)
	sp.predictionService = NewPredictionService(sp.predictor, sp.logger)
	sp.logger.Info("Simulation service initialized",
		zap.Duration("tick_interval", sp.config.Simulation.TickInterval()),
		zap.Int("history_size", sp.config.Simulation.HistorySize))

	sp.streamService = NewStreamService(ctx, sp.logger)
	sp.simulationService.OnTick(sp.streamService.HandleTick)
	sp.simulationService.OnPrediction(sp.streamService.HandlePrediction)
	sp.simulationService.OnControl(sp.streamService.HandleControl)
	sp.logger.Info("Stream service initialized")

	if sp.database != nil {
		sp.archiveService = NewArchiveService(sp.database, sp.logger)
		sp.archiveService.Start(ctx)
		sp.simulationService.OnTick(sp.archiveService.HandleTick)
		sp.simulationService.OnPrediction(sp.archiveService.HandlePrediction)
		sp.logger.Info("Archive service initialized")
	}

	if sp.config.Kafka.Enabled {
		if err := sp.initKafka(); err != nil {
			return err
		}
	}

	if sp.config.MQTT.Enabled {
		if err := sp.initMQTT(ctx); err != nil {
			return err
		}
	}

	sp.logger.Info("All services initialized successfully")
	return nil
}

func (sp *ServiceProvider) initKafka() error {
	var err error

	sp.kafkaManager, err = kafka.NewManager(&sp.config.Kafka, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create Kafka manager: %w", err)
	}

	sp.kafkaHandler = NewKafkaHandler(sp.logger, sp.kafkaManager, sp.simulationService)
	if err = sp.kafkaHandler.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize Kafka handler: %w", err)
	}

	if err = sp.kafkaManager.Start(); err != nil {
		return fmt.Errorf("failed to start Kafka manager: %w", err)
	}
	sp.logger.Info("Kafka manager started")
	return nil
}

func (sp *ServiceProvider) initMQTT(ctx context.Context) error {
	client, err := mqtt.NewClient(&sp.config.MQTT, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to connect telemetry broker: %w", err)
	}
	sp.mqttClient = client

	publisher := mqtt.NewPublisher(client.Native(), sp.config.MQTT.TopicPrefix, byte(sp.config.MQTT.QoS), sp.logger)
	go publisher.Start(ctx)
	sp.simulationService.OnTick(publisher.Enqueue)

	sp.logger.Info("Telemetry publisher started", zap.String("broker", sp.config.MQTT.Broker))
	return nil
}

// Shutdown performs a graceful shutdown of all services
func (sp *ServiceProvider) Shutdown() error {
	sp.logger.Info("Shutting down services")

	if sp.simulationService != nil {
		sp.simulationService.Close()
	}

	if sp.cancel != nil {
		sp.cancel()
	}

	if sp.kafkaManager != nil {
		sp.logger.Info("Stopping Kafka manager")
		sp.kafkaManager.Close()
	}

	if sp.mqttClient != nil {
		sp.mqttClient.Close()
	}

	if sp.archiveService != nil {
		sp.archiveService.Wait()
	}

	sp.logger.Info("Services shut down successfully")
	return nil
}

// GetSimulationService returns the simulation service
func (sp *ServiceProvider) GetSimulationService() *SimulationService {
	return sp.simulationService
}

// GetPredictionService returns the stateless prediction service
func (sp *ServiceProvider) GetPredictionService() *PredictionService {
	return sp.predictionService
}

// GetStreamService returns the stream service
func (sp *ServiceProvider) GetStreamService() *StreamService {
	return sp.streamService
}

// GetArchiveService returns the archive service, nil when the archive is disabled
func (sp *ServiceProvider) GetArchiveService() *ArchiveService {
	return sp.archiveService
}

// GetKafkaManager returns the Kafka manager, nil when Kafka is disabled
func (sp *ServiceProvider) GetKafkaManager() *kafka.Manager {
	return sp.kafkaManager
}
