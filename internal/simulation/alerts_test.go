package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertDetector_AllRulesFire(t *testing.T) {
	detector := NewAlertDetector(DefaultAlertProbability, constSource(0)).WithClock(fixedClock)
	machines := []Machine{{ID: "cnc-1", Name: "CNC Machine", Temperature: 96.04, Load: 460.25, Speed: 3600.4}}

	alerts := detector.Detect(machines)

	require.Len(t, alerts, 3)

	assert.Equal(t, "Critical Temperature: 96.0°C", alerts[0].Message)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Critical Load: 460.2kg", alerts[1].Message)
	assert.Equal(t, SeverityCritical, alerts[1].Severity)
	assert.Equal(t, "Warning: High Speed: 3600RPM", alerts[2].Message)
	assert.Equal(t, SeverityWarning, alerts[2].Severity)

	ids := map[string]bool{}
	for _, alert := range alerts {
		assert.Equal(t, "cnc-1", alert.MachineID)
		assert.Equal(t, "CNC Machine", alert.MachineName)
		assert.Equal(t, fixedNow, alert.Timestamp)
		assert.NotEmpty(t, alert.ID)
		ids[alert.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestAlertDetector_CoinFlipSuppresses(t *testing.T) {
	detector := NewAlertDetector(DefaultAlertProbability, constSource(0.2))
	machines := []Machine{{ID: "m", Temperature: 120, Load: 500, Speed: 4000}}

	assert.Empty(t, detector.Detect(machines))
}

func TestAlertDetector_FlipsOnlyOverThreshold(t *testing.T) {
	noise := &seqSource{values: []float64{0.1}}
	detector := NewAlertDetector(DefaultAlertProbability, noise)
	machines := []Machine{
		{ID: "calm", Temperature: 95, Load: 450, Speed: 3500},
		{ID: "fast", Temperature: 30, Load: 10, Speed: 3501},
	}

	alerts := detector.Detect(machines)

	require.Len(t, alerts, 1)
	assert.Equal(t, "fast", alerts[0].MachineID)
	assert.Equal(t, 1, noise.drawn)
}

func TestPrependAlerts_NewestFirstAndCapped(t *testing.T) {
	live := []Alert{{ID: "old-1"}, {ID: "old-2"}}
	fresh := []Alert{{ID: "new-1"}, {ID: "new-2"}}

	merged := prependAlerts(live, fresh, 3)

	assert.Equal(t, []Alert{{ID: "new-1"}, {ID: "new-2"}, {ID: "old-1"}}, merged)
	assert.Len(t, live, 2)
}
