package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// StreamType defines types of stream messages
type StreamType string

const (
	// StreamTypeSnapshot carries the live state after every tick
	StreamTypeSnapshot StreamType = "snapshot"
	// StreamTypeAlert carries one freshly raised alert
	StreamTypeAlert StreamType = "alert"
	// StreamTypeControl reports start, stop, reset and replay changes
	StreamTypeControl StreamType = "control"
	// StreamTypePredictionPending reports a prediction request in flight
	StreamTypePredictionPending StreamType = StreamType(prediction.EventPending)
	// StreamTypePrediction carries a prediction result
	StreamTypePrediction StreamType = StreamType(prediction.EventResult)
	// StreamTypePredictionError is the user-visible prediction failure notification
	StreamTypePredictionError StreamType = StreamType(prediction.EventError)
)

// StreamMessage represents a message sent to stream clients
type StreamMessage struct {
	Type      StreamType  `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// StreamClient represents a websocket client connection
type StreamClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	topics map[StreamType]bool // empty means every type
	mu     sync.RWMutex
}

func (c *StreamClient) wants(t StreamType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics) == 0 || c.topics[t]
}

// StreamService fans simulation and prediction events out to websocket clients
type StreamService struct {
	logger     *utils.Logger
	clients    map[*StreamClient]bool
	register   chan *StreamClient
	unregister chan *StreamClient
	broadcast  chan *StreamMessage
	done       chan struct{}
	count      int
	mutex      sync.RWMutex
}

// NewStreamService creates the hub and runs it until ctx ends
func NewStreamService(ctx context.Context, logger *utils.Logger) *StreamService {
	service := &StreamService{
		logger:     logger.Named("stream_service"),
		clients:    make(map[*StreamClient]bool),
		register:   make(chan *StreamClient),
		unregister: make(chan *StreamClient),
		broadcast:  make(chan *StreamMessage, 256),
		done:       make(chan struct{}),
	}

	go service.run(ctx)
	return service
}

// RegisterClient adds a websocket client and starts its pumps
func (s *StreamService) RegisterClient(conn *websocket.Conn) *StreamClient {
	client := &StreamClient{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, 256),
		topics: make(map[StreamType]bool),
	}

	select {
	case s.register <- client:
	case <-s.done:
		_ = conn.Close()
		return client
	}

	go s.readPump(client)
	go s.writePump(client)

	return client
}

// ClientCount returns the number of connected clients
func (s *StreamService) ClientCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.count
}

// Publish queues a message for every interested client
func (s *StreamService) Publish(streamType StreamType, payload interface{}) {
	message := &StreamMessage{
		Type:      streamType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	select {
	case s.broadcast <- message:
	case <-s.done:
	}
}

// HandleTick publishes one tick's snapshot and its new alerts
func (s *StreamService) HandleTick(event simulation.TickEvent) {
	s.Publish(StreamTypeSnapshot, event)
	for _, alert := range event.NewAlerts {
		s.Publish(StreamTypeAlert, alert)
	}
}

// HandlePrediction publishes a prediction lifecycle event
func (s *StreamService) HandlePrediction(event prediction.Event) {
	s.Publish(StreamType(event.Type), event)
}

// HandleControl publishes a start, stop, reset or replay change
func (s *StreamService) HandleControl(event ControlEvent) {
	s.Publish(StreamTypeControl, event)
}

// run owns the client set
func (s *StreamService) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			for client := range s.clients {
				s.drop(client)
			}
			s.logger.Info("Stream hub stopped")
			return

		case client := <-s.register:
			s.clients[client] = true
			s.setCount()
			s.logger.Debug("Client registered", zap.String("client_id", client.id))

		case client := <-s.unregister:
			if s.clients[client] {
				s.drop(client)
			}
			s.logger.Debug("Client unregistered", zap.String("client_id", client.id))

		case message := <-s.broadcast:
			jsonMessage, err := json.Marshal(message)
			if err != nil {
				s.logger.Error("Failed to marshal stream message",
					zap.Error(err),
					zap.String("type", string(message.Type)))
				continue
			}

			for client := range s.clients {
				if !client.wants(message.Type) {
					continue
				}
				select {
				case client.send <- jsonMessage:
				default:
					s.drop(client)
					s.logger.Warn("Client buffer full, connection closed", zap.String("client_id", client.id))
				}
			}
		}
	}
}

// drop removes a client and closes its send channel; only run calls it
func (s *StreamService) drop(client *StreamClient) {
	delete(s.clients, client)
	close(client.send)
	s.setCount()
}

func (s *StreamService) setCount() {
	s.mutex.Lock()
	s.count = len(s.clients)
	s.mutex.Unlock()
}

// readPump reads subscription changes from the client
func (s *StreamService) readPump(client *StreamClient) {
	defer func() {
		select {
		case s.unregister <- client:
		case <-s.done:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				s.logger.Warn("Unexpected websocket close",
					zap.Error(err),
					zap.String("client_id", client.id))
			}
			break
		}

		var clientMsg struct {
			Action string `json:"action"`
			Topic  string `json:"topic"`
		}

		if err := json.Unmarshal(message, &clientMsg); err != nil {
			s.logger.Warn("Invalid client message",
				zap.Error(err),
				zap.ByteString("message", message))
			continue
		}

		if clientMsg.Topic == "" {
			continue
		}

		client.mu.Lock()
		switch clientMsg.Action {
		case "subscribe":
			client.topics[StreamType(clientMsg.Topic)] = true
		case "unsubscribe":
			delete(client.topics, StreamType(clientMsg.Topic))
		}
		client.mu.Unlock()
	}
}

// writePump writes queued messages and keepalive pings to the client
func (s *StreamService) writePump(client *StreamClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
