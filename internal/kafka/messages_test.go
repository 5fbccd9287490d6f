package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
)

func TestDecodeControlCommand(t *testing.T) {
	t.Run("Should accept plain actions", func(t *testing.T) {
		for _, action := range []string{ActionStart, ActionStop, ActionReset, ActionStep} {
			cmd, err := DecodeControlCommand([]byte(`{"action":"` + action + `"}`))
			require.NoError(t, err)
			assert.Equal(t, action, cmd.Action)
		}
	})

	t.Run("Should accept set_speed with machine and speed", func(t *testing.T) {
		cmd, err := DecodeControlCommand([]byte(`{"action":"set_speed","machineId":"cnc-1","speed":2500}`))
		require.NoError(t, err)
		assert.Equal(t, "cnc-1", cmd.MachineID)
		require.NotNil(t, cmd.Speed)
		assert.Equal(t, 2500.0, *cmd.Speed)
	})

	invalid := map[string]string{
		"unknown action":      `{"action":"explode"}`,
		"missing action":      `{}`,
		"set_speed no speed":  `{"action":"set_speed","machineId":"cnc-1"}`,
		"set_speed no target": `{"action":"set_speed","speed":10}`,
		"not json":            `start`,
	}
	for name, body := range invalid {
		t.Run("Should reject "+name, func(t *testing.T) {
			_, err := DecodeControlCommand([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestNewSnapshotMessage(t *testing.T) {
	state := simulation.InitialState()
	state.Time = 7
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	msg := NewSnapshotMessage(simulation.TickEvent{State: state, Recorded: true}, now)

	assert.Equal(t, 7, msg.Time)
	assert.True(t, msg.Recorded)
	assert.Len(t, msg.Machines, 3)
	assert.Equal(t, now, msg.Timestamp)
}

func TestNewPredictionMessage(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, ok := NewPredictionMessage(prediction.Event{Type: prediction.EventPending, Seq: 1}, now)
	assert.False(t, ok)

	msg, ok := NewPredictionMessage(prediction.Event{
		Type:      prediction.EventError,
		Seq:       2,
		MachineID: "cnc-1",
		Error:     "boom",
	}, now)
	require.True(t, ok)
	assert.Equal(t, uint64(2), msg.Seq)
	assert.Equal(t, "boom", msg.Error)
	assert.Nil(t, msg.Prediction)
}

func TestAlertMessage_FlattensAlert(t *testing.T) {
	msg := AlertMessage{
		Alert:   simulation.Alert{ID: "a-1", MachineID: "cnc-1", Severity: simulation.SeverityCritical},
		SimTime: 12,
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "a-1", decoded["id"])
	assert.Equal(t, "critical", decoded["severity"])
	assert.Equal(t, 12.0, decoded["simTime"])
}

func TestToKafkaMessage(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Should encode values as JSON", func(t *testing.T) {
		msg, err := toKafkaMessage(TopicAlerts, &Message{
			Key:       "cnc-1",
			Value:     map[string]int{"a": 1},
			Timestamp: ts,
			Headers:   map[string]string{"severity": "critical"},
		})
		require.NoError(t, err)

		assert.Equal(t, TopicAlerts, *msg.TopicPartition.Topic)
		assert.Equal(t, []byte("cnc-1"), msg.Key)
		assert.JSONEq(t, `{"a":1}`, string(msg.Value))
		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "severity", msg.Headers[0].Key)
	})

	t.Run("Should pass raw bytes through", func(t *testing.T) {
		msg, err := toKafkaMessage(DLQTopic(TopicSimulationControl), &Message{Value: []byte(`not json`)})
		require.NoError(t, err)

		assert.Equal(t, "simulation-control.dlq", *msg.TopicPartition.Topic)
		assert.Equal(t, []byte("not json"), msg.Value)
		assert.Nil(t, msg.Key)
	})

	t.Run("Should fail on unencodable values", func(t *testing.T) {
		_, err := toKafkaMessage(TopicAlerts, &Message{Value: make(chan int)})
		assert.Error(t, err)
	})
}
