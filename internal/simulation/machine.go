package simulation

// Status is the operating state reported for a machine
type Status string

// Machine statuses
const (
	StatusRunning Status = "running"
	StatusIdle    Status = "idle"
	StatusError   Status = "error"
	StatusStopped Status = "stopped"
)

// Reading bounds enforced after every tick
const (
	MinTemperature = 20.0
	MaxTemperature = 120.0
	MinLoad        = 0.0
	MaxLoad        = 500.0
	MinSpeed       = 0.0
	MaxSpeed       = 4000.0

	// Above either limit a machine is in error regardless of the running flag.
	ErrorTemperature = 100.0
	ErrorLoad        = 480.0
)

// Machine is one simulated line machine and its current readings
type Machine struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Status      Status  `json:"status"`
	Temperature float64 `json:"temperature"` // °C
	Load        float64 `json:"load"`        // kg
	Speed       float64 `json:"speed"`       // RPM
}

// DefaultMachines returns the seeded machine registry at rest
func DefaultMachines() []Machine {
	return []Machine{
		{ID: "cnc-1", Name: "CNC Machine", Status: StatusIdle, Temperature: 25},
		{ID: "conveyor-1", Name: "Conveyor Belt", Status: StatusIdle, Temperature: 22},
		{ID: "robot-arm-1", Name: "Robot Arm", Status: StatusIdle, Temperature: 28},
	}
}

// deriveStatus applies the status invariant to clamped readings
func deriveStatus(m Machine, running bool) Status {
	switch {
	case m.Temperature > ErrorTemperature || m.Load > ErrorLoad:
		return StatusError
	case running:
		return StatusRunning
	default:
		return StatusIdle
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampSpeed bounds a requested speed to the machine range
func ClampSpeed(speed float64) float64 {
	return clamp(speed, MinSpeed, MaxSpeed)
}
