package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/kafka"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "./config", "Path to the configuration directory")
	action := flag.String("action", "", "Control action: start, stop, reset, step or set_speed")
	machineID := flag.String("machine", "", "Machine ID for set_speed")
	speed := flag.Float64("speed", 0, "Speed in RPM for set_speed")
	watch := flag.Bool("watch", false, "Log twin state, alert and prediction messages until interrupted")
	flag.Parse()

	if *action == "" && !*watch {
		fmt.Println("Nothing to do: pass -action and/or -watch")
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logger, err := utils.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create Kafka manager
	kafkaManager, err := kafka.NewManager(&cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka manager", zap.Error(err))
	}
	defer kafkaManager.Close()

	if *watch {
		if err := addWatcher(kafkaManager, logger); err != nil {
			logger.Fatal("Failed to register watcher", zap.Error(err))
		}
	}

	// Start Kafka manager
	if err := kafkaManager.Start(); err != nil {
		logger.Fatal("Failed to start Kafka manager", zap.Error(err))
	}

	if *action != "" {
		cmd := kafka.ControlCommand{Action: *action, MachineID: *machineID}
		if *action == kafka.ActionSetSpeed {
			cmd.Speed = speed
		}
		if err := cmd.Validate(); err != nil {
			logger.Fatal("Invalid control command", zap.Error(err))
		}

		if err := kafkaManager.SendControlCommand(cmd); err != nil {
			logger.Fatal("Failed to send control command", zap.Error(err))
		}
		logger.Info("Control command sent",
			zap.String("action", cmd.Action),
			zap.String("machine_id", cmd.MachineID))
	}

	if !*watch {
		return
	}

	// Watch until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("Received signal, shutting down")
}

// addWatcher logs every message on the outbound simulation topics
func addWatcher(kafkaManager *kafka.Manager, logger *utils.Logger) error {
	logMessage := func(msg *ckafka.Message) error {
		topic := ""
		if msg.TopicPartition.Topic != nil {
			topic = *msg.TopicPartition.Topic
		}
		logger.Info("Received message",
			zap.String("topic", topic),
			zap.ByteString("key", msg.Key),
			zap.ByteString("value", msg.Value),
			zap.Time("timestamp", msg.Timestamp))
		return nil
	}

	return kafkaManager.AddConsumer("simctl-watch", map[string][]kafka.MessageHandler{
		kafka.TopicTwinState: {logMessage},
		kafka.TopicAlerts:    {logMessage},
		kafka.TopicMLOutput:  {logMessage},
	})
}
