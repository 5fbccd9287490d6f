package simulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an alert
type Severity string

// Alert severities
const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert thresholds
const (
	AlertTemperature = 95.0
	AlertLoad        = 450.0
	AlertSpeed       = 3500.0

	DefaultAlertProbability = 0.2
)

// Alert is an immutable threshold crossing record
type Alert struct {
	ID          string    `json:"id"`
	MachineID   string    `json:"machineId"`
	MachineName string    `json:"machineName"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    Severity  `json:"severity"`
}

// AlertDetector turns post-tick readings into alerts. Each rule that is over its
// threshold only fires with the configured probability, which keeps a machine
// parked over a limit from flooding the alert list.
type AlertDetector struct {
	probability float64
	noise       NoiseSource
	now         func() time.Time
	newID       func() string
}

// NewAlertDetector creates a detector drawing coin flips from noise
func NewAlertDetector(probability float64, noise NoiseSource) *AlertDetector {
	return &AlertDetector{
		probability: probability,
		noise:       noise,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// WithClock overrides the timestamp source
func (d *AlertDetector) WithClock(now func() time.Time) *AlertDetector {
	d.now = now
	return d
}

// Detect evaluates every rule against every machine
func (d *AlertDetector) Detect(machines []Machine) []Alert {
	var alerts []Alert

	for _, m := range machines {
		if m.Temperature > AlertTemperature && d.flip() {
			alerts = append(alerts, d.newAlert(m, SeverityCritical,
				fmt.Sprintf("Critical Temperature: %.1f°C", m.Temperature)))
		}
		if m.Load > AlertLoad && d.flip() {
			alerts = append(alerts, d.newAlert(m, SeverityCritical,
				fmt.Sprintf("Critical Load: %.1fkg", m.Load)))
		}
		if m.Speed > AlertSpeed && d.flip() {
			alerts = append(alerts, d.newAlert(m, SeverityWarning,
				fmt.Sprintf("Warning: High Speed: %.0fRPM", m.Speed)))
		}
	}

	return alerts
}

func (d *AlertDetector) flip() bool {
	return d.noise.Float64() < d.probability
}

func (d *AlertDetector) newAlert(m Machine, severity Severity, message string) Alert {
	return Alert{
		ID:          d.newID(),
		MachineID:   m.ID,
		MachineName: m.Name,
		Message:     message,
		Timestamp:   d.now().UTC(),
		Severity:    severity,
	}
}

// prependAlerts puts fresh alerts in front of the live list and caps it
func prependAlerts(live, fresh []Alert, limit int) []Alert {
	merged := make([]Alert, 0, len(fresh)+len(live))
	merged = append(merged, fresh...)
	merged = append(merged, live...)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
