package simulation

import "time"

// constSource always returns the same draw
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// seqSource replays draws in order and counts them; it panics when exhausted
type seqSource struct {
	values []float64
	drawn  int
}

func (s *seqSource) Float64() float64 {
	v := s.values[s.drawn]
	s.drawn++
	return v
}

// zeroNoise centers every draw at 0
const zeroNoise = constSource(0.5)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func machineByID(t interface{ Fatalf(string, ...interface{}) }, s State, id string) Machine {
	m, ok := s.Machine(id)
	if !ok {
		t.Fatalf("machine %s not found", id)
	}
	return m
}
