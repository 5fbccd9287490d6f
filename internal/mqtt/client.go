package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// Client manages the MQTT broker connection
type Client struct {
	client paho.Client
	config *config.MQTTConfig
	logger *utils.Logger
}

// NewClient connects to the configured broker
func NewClient(cfg *config.MQTTConfig, logger *utils.Logger) (*Client, error) {
	mqttLogger := logger.Named("mqtt")

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		mqttLogger.Info("Connection established", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		mqttLogger.Warn("Connection lost", zap.Error(err))
	})

	client := paho.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{
		client: client,
		config: cfg,
		logger: mqttLogger,
	}, nil
}

// Native returns the underlying paho client
func (c *Client) Native() paho.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("Disconnected")
}
