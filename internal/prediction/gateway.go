package prediction

import (
	"context"
	"sync"

	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// EventType names a prediction lifecycle event
type EventType string

// Prediction lifecycle events
const (
	EventPending EventType = "prediction_pending"
	EventResult  EventType = "prediction"
	EventError   EventType = "prediction_error"
)

// Event reports a change of the gateway state
type Event struct {
	Type       EventType   `json:"type"`
	Seq        uint64      `json:"seq"`
	MachineID  string      `json:"machineId,omitempty"`
	Input      *Input      `json:"input,omitempty"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Listener receives gateway events, outside the gateway lock
type Listener func(Event)

// State is the per-session prediction state
type State struct {
	Pending    bool        `json:"pending"`
	MachineID  string      `json:"machineId,omitempty"`
	Prediction *Prediction `json:"prediction"`
}

// Gateway tracks the one current prediction of a session. Every request takes a
// sequence number and only the most recent one may update the state.
type Gateway struct {
	predictor Predictor
	logger    *utils.Logger

	mu        sync.Mutex
	seq       uint64
	pending   bool
	machineID string
	current   *Prediction
	listeners []Listener
}

// NewGateway creates a gateway over predictor
func NewGateway(predictor Predictor, logger *utils.Logger) *Gateway {
	return &Gateway{
		predictor: predictor,
		logger:    logger.Named("prediction"),
	}
}

// OnEvent registers a listener
func (g *Gateway) OnEvent(listener Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, listener)
}

// Request predicts for one machine. It marks the gateway pending and clears the
// previous prediction, then calls the predictor without holding the lock. When a
// newer request or a Clear happened meanwhile, the result is discarded and
// ErrSuperseded is returned.
func (g *Gateway) Request(ctx context.Context, machineID string, in Input) (*Prediction, error) {
	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.pending = true
	g.machineID = machineID
	g.current = nil
	listeners := g.listeners
	g.mu.Unlock()

	emit(listeners, Event{Type: EventPending, Seq: seq, MachineID: machineID, Input: &in})

	result, err := g.predictor.Predict(ctx, in)

	g.mu.Lock()
	if seq != g.seq {
		g.mu.Unlock()
		g.logger.Info("Discarding stale prediction",
			zap.Uint64("seq", seq),
			zap.String("machine_id", machineID),
			zap.Bool("failed", err != nil),
		)
		return nil, ErrSuperseded
	}

	g.pending = false
	event := Event{Seq: seq, MachineID: machineID, Input: &in}
	if err != nil {
		g.current = nil
		event.Type = EventError
		event.Error = err.Error()
	} else {
		g.current = result
		event.Type = EventResult
		event.Prediction = result
	}
	listeners = g.listeners
	g.mu.Unlock()

	if err != nil {
		g.logger.Error("Prediction failed", zap.String("machine_id", machineID), zap.Error(err))
	}
	emit(listeners, event)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear drops the current prediction and invalidates in-flight requests
func (g *Gateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.pending = false
	g.machineID = ""
	g.current = nil
}

// State returns the current prediction state
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := State{Pending: g.pending, MachineID: g.machineID}
	if g.current != nil {
		p := *g.current
		state.Prediction = &p
	}
	return state
}

func emit(listeners []Listener, event Event) {
	for _, listener := range listeners {
		listener(event)
	}
}
