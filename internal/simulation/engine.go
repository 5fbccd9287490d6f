package simulation

// State is the simulation clock plus every machine's readings
type State struct {
	IsRunning bool      `json:"isRunning"`
	Time      int       `json:"time"` // seconds elapsed
	Machines  []Machine `json:"machines"`
}

// InitialState returns the stopped state at time 0 with the default machines
func InitialState() State {
	return State{
		IsRunning: false,
		Time:      0,
		Machines:  DefaultMachines(),
	}
}

// Clone returns a copy that shares no machine storage with s
func (s State) Clone() State {
	machines := make([]Machine, len(s.Machines))
	copy(machines, s.Machines)
	s.Machines = machines
	return s
}

// Machine looks a machine up by ID
func (s State) Machine(id string) (Machine, bool) {
	for _, m := range s.Machines {
		if m.ID == id {
			return m, true
		}
	}
	return Machine{}, false
}

// Tick advances the state by one simulated second. It has no side effects other
// than drawing from noise, which is only consulted while running.
func Tick(s State, noise NoiseSource) State {
	next := State{
		IsRunning: s.IsRunning,
		Time:      s.Time + 1,
		Machines:  make([]Machine, len(s.Machines)),
	}

	for i, m := range s.Machines {
		if s.IsRunning {
			// Heat follows speed and load, with a constant loss toward ambient
			m.Temperature += m.Speed/500 + m.Load/100 - 0.2 + centered(noise)
			m.Load += centered(noise) * 10
			m.Speed += centered(noise) * 10
		} else {
			// Cool down and spin down toward rest
			m.Temperature -= 0.5
			m.Load -= 1
			m.Speed -= 50
		}

		m.Temperature = clamp(m.Temperature, MinTemperature, MaxTemperature)
		m.Load = clamp(m.Load, MinLoad, MaxLoad)
		m.Speed = clamp(m.Speed, MinSpeed, MaxSpeed)
		m.Status = deriveStatus(m, s.IsRunning)

		next.Machines[i] = m
	}

	return next
}
