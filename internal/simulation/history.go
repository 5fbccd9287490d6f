package simulation

// DefaultHistorySize keeps five minutes of snapshots at one tick per second
const DefaultHistorySize = 300

// HistoryEntry is a snapshot: the state plus the live alerts at that tick
type HistoryEntry struct {
	State
	Alerts []Alert `json:"alerts"`
}

// HistoryRecorder is a bounded, append-only snapshot log. Entries are never
// modified once recorded.
type HistoryRecorder struct {
	entries []HistoryEntry
	limit   int
}

// NewHistoryRecorder creates a recorder holding at most limit entries, seeded with initial
func NewHistoryRecorder(limit int, initial State) *HistoryRecorder {
	if limit < 1 {
		limit = DefaultHistorySize
	}
	r := &HistoryRecorder{limit: limit}
	r.Reset(initial)
	return r
}

// Record appends a snapshot while the state is running; stopped states are ignored.
// It reports whether an entry was added.
func (r *HistoryRecorder) Record(state State, alerts []Alert) bool {
	if !state.IsRunning {
		return false
	}

	r.entries = append(r.entries, newEntry(state, alerts))
	if overflow := len(r.entries) - r.limit; overflow > 0 {
		// Drop from the front, reusing a fresh backing array so evicted snapshots can be collected
		kept := make([]HistoryEntry, r.limit, r.limit+1)
		copy(kept, r.entries[overflow:])
		r.entries = kept
	}
	return true
}

// Reset replaces the log with a single snapshot of initial and no alerts
func (r *HistoryRecorder) Reset(initial State) {
	r.entries = make([]HistoryEntry, 0, r.limit+1)
	r.entries = append(r.entries, newEntry(initial, nil))
}

// Len returns the number of recorded snapshots
func (r *HistoryRecorder) Len() int {
	return len(r.entries)
}

// At returns the snapshot at index i
func (r *HistoryRecorder) At(i int) (HistoryEntry, bool) {
	if i < 0 || i >= len(r.entries) {
		return HistoryEntry{}, false
	}
	return r.entries[i], true
}

// Entries returns the log, oldest first
func (r *HistoryRecorder) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func newEntry(state State, alerts []Alert) HistoryEntry {
	copied := make([]Alert, len(alerts))
	copy(copied, alerts)
	return HistoryEntry{State: state.Clone(), Alerts: copied}
}
