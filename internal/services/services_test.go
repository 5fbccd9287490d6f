package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/kafka"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/testutil"
	"github.com/twinvision/backend/internal/utils"
)

type predictorFunc func(ctx context.Context, in prediction.Input) (*prediction.Prediction, error)

func (f predictorFunc) Predict(ctx context.Context, in prediction.Input) (*prediction.Prediction, error) {
	return f(ctx, in)
}

var overheating = &prediction.Prediction{FailureType: "Overheating", EstimatedTime: "2 hours", ConfidenceScore: 0.7}

func newTestSimulationService(t *testing.T, predictor prediction.Predictor) *SimulationService {
	t.Helper()

	logger := utils.NewNopLogger()
	cfg := config.SimulationConfig{
		TickIntervalMs:   60 * 60 * 1000,
		HistorySize:      300,
		AlertListSize:    50,
		AlertProbability: 0.2,
		Seed:             1,
	}
	svc := NewSimulationService(context.Background(), cfg, prediction.NewGateway(predictor, logger), logger)
	t.Cleanup(svc.Close)
	return svc
}

func TestSimulationService_ErrorKinds(t *testing.T) {
	svc := newTestSimulationService(t, predictorFunc(func(context.Context, prediction.Input) (*prediction.Prediction, error) {
		return overheating, nil
	}))

	t.Run("Should report conflict when setting speed while stopped", func(t *testing.T) {
		_, err := svc.SetSpeed("cnc-1", 100)
		assert.ErrorIs(t, err, utils.ErrConflict)
		assert.ErrorIs(t, err, simulation.ErrNotRunning)
	})

	t.Run("Should report not found for unknown machines", func(t *testing.T) {
		_, err := svc.Predict(context.Background(), "lathe-9")
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("Should report bad request for a replay index out of range", func(t *testing.T) {
		err := svc.SetReplayIndex(intPtr(5))
		assert.ErrorIs(t, err, utils.ErrBadRequest)
	})

	t.Run("Should report conflict when replaying while running", func(t *testing.T) {
		require.NoError(t, svc.Start())
		defer svc.Stop()

		err := svc.SetReplayIndex(intPtr(0))
		assert.ErrorIs(t, err, utils.ErrConflict)
	})
}

func TestSimulationService_PredictUsesLiveReadings(t *testing.T) {
	var got prediction.Input
	svc := newTestSimulationService(t, predictorFunc(func(_ context.Context, in prediction.Input) (*prediction.Prediction, error) {
		got = in
		return overheating, nil
	}))

	result, err := svc.Predict(context.Background(), "robot-arm-1")
	require.NoError(t, err)

	assert.Equal(t, overheating, result)
	assert.Equal(t, 28.0, got.Temperature)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, overheating, svc.PredictionState().Prediction)
}

func TestSimulationService_ResetClearsPrediction(t *testing.T) {
	svc := newTestSimulationService(t, predictorFunc(func(context.Context, prediction.Input) (*prediction.Prediction, error) {
		return overheating, nil
	}))

	var actions []string
	svc.OnControl(func(e ControlEvent) { actions = append(actions, e.Action) })

	require.NoError(t, svc.Start())
	svc.Step()
	_, err := svc.Predict(context.Background(), "cnc-1")
	require.NoError(t, err)

	svc.Reset()

	assert.Equal(t, prediction.State{}, svc.PredictionState())
	assert.Equal(t, simulation.InitialState(), svc.View().State)
	assert.Len(t, svc.History(), 1)
	assert.Equal(t, []string{ControlStart, ControlReset}, actions)
}

type recordingPublisher struct {
	snapshots   []simulation.TickEvent
	alerts      []simulation.Alert
	predictions []prediction.Event
}

func (p *recordingPublisher) PublishSnapshot(event simulation.TickEvent) error {
	p.snapshots = append(p.snapshots, event)
	return nil
}

func (p *recordingPublisher) PublishAlerts(alerts []simulation.Alert, _ int) error {
	p.alerts = append(p.alerts, alerts...)
	return nil
}

func (p *recordingPublisher) PublishPrediction(event prediction.Event) error {
	p.predictions = append(p.predictions, event)
	return errors.New("broker down")
}

func TestKafkaHandler_Control(t *testing.T) {
	svc := newTestSimulationService(t, predictorFunc(func(context.Context, prediction.Input) (*prediction.Prediction, error) {
		return overheating, nil
	}))
	publisher := &recordingPublisher{}
	h := &KafkaHandler{logger: utils.NewNopLogger(), publisher: publisher, simulation: svc}
	svc.OnTick(h.handleTick)
	svc.OnPrediction(h.handlePrediction)

	t.Run("Should start and step the simulation", func(t *testing.T) {
		require.NoError(t, h.handleControl(kafka.ControlCommand{Action: kafka.ActionStart}))
		require.NoError(t, h.handleControl(kafka.ControlCommand{Action: kafka.ActionStep}))

		assert.True(t, svc.View().State.IsRunning)
		require.Len(t, publisher.snapshots, 1)
		assert.Equal(t, 1, publisher.snapshots[0].State.Time)
	})

	t.Run("Should set speed", func(t *testing.T) {
		speed := 5000.0
		require.NoError(t, h.handleControl(kafka.ControlCommand{Action: kafka.ActionSetSpeed, MachineID: "cnc-1", Speed: &speed}))

		assert.Equal(t, simulation.MaxSpeed, svc.Machines()[0].Speed)
	})

	t.Run("Should fail set_speed for unknown machines", func(t *testing.T) {
		speed := 10.0
		err := h.handleControl(kafka.ControlCommand{Action: kafka.ActionSetSpeed, MachineID: "lathe-9", Speed: &speed})
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("Should stop and reset", func(t *testing.T) {
		require.NoError(t, h.handleControl(kafka.ControlCommand{Action: kafka.ActionStop}))
		require.NoError(t, h.handleControl(kafka.ControlCommand{Action: kafka.ActionReset}))

		assert.Equal(t, simulation.InitialState(), svc.View().State)
	})

	t.Run("Should reject unknown actions", func(t *testing.T) {
		err := h.handleControl(kafka.ControlCommand{Action: "explode"})
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("Should keep going when publishing fails", func(t *testing.T) {
		_, err := svc.Predict(context.Background(), "cnc-1")
		require.NoError(t, err)
		assert.Len(t, publisher.predictions, 2)
	})
}

func TestArchiveService_WritesAlertsAndPredictions(t *testing.T) {
	// Setup test environment
	ts := testutil.NewTestSetup(t)
	database := ts.SetupTestDatabase(t)

	archive := NewArchiveService(database, ts.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	archive.Start(ctx)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	archive.HandleTick(simulation.TickEvent{
		State: simulation.State{Time: 4},
		NewAlerts: []simulation.Alert{
			{ID: "a-1", MachineID: "cnc-1", MachineName: "CNC Machine", Severity: simulation.SeverityCritical, Message: "Critical Load: 460.0kg", Timestamp: at},
		},
	})
	archive.HandlePrediction(prediction.Event{Type: prediction.EventPending, Seq: 1, MachineID: "cnc-1"})
	archive.HandlePrediction(prediction.Event{
		Type:       prediction.EventResult,
		Seq:        1,
		MachineID:  "cnc-1",
		Input:      &prediction.Input{Temperature: 96, Load: 460, Speed: 3000, Timestamp: at},
		Prediction: overheating,
	})

	cancel()
	archive.Wait()

	alerts, err := archive.ListAlerts("", utils.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), alerts.TotalItems)

	predictions, err := archive.ListPredictions("cnc-1", utils.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), predictions.TotalItems, "pending events are not archived")
}

func TestStreamService_FansOutToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := NewStreamService(ctx, utils.NewNopLogger())
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		stream.RegisterClient(conn)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return stream.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	stream.HandleTick(simulation.TickEvent{
		State:     simulation.InitialState(),
		NewAlerts: []simulation.Alert{{ID: "a-1", MachineID: "cnc-1"}},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var types []StreamType
	for i := 0; i < 2; i++ {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		types = append(types, msg.Type)
	}
	assert.Equal(t, []StreamType{StreamTypeSnapshot, StreamTypeAlert}, types)

	conn.Close()
	require.Eventually(t, func() bool { return stream.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStreamClient_Topics(t *testing.T) {
	client := &StreamClient{topics: map[StreamType]bool{}}
	assert.True(t, client.wants(StreamTypeSnapshot), "no subscription means every type")

	client.topics[StreamTypeAlert] = true
	assert.True(t, client.wants(StreamTypeAlert))
	assert.False(t, client.wants(StreamTypeSnapshot))
}

func intPtr(v int) *int { return &v }
