package simulation

import "fmt"

// ReplaySelector holds the optional history index shown instead of the live state
type ReplaySelector struct {
	index *int
}

// Active reports whether replay mode is on
func (r *ReplaySelector) Active() bool {
	return r.index != nil
}

// Index returns the selected index, or nil in live mode
func (r *ReplaySelector) Index() *int {
	if r.index == nil {
		return nil
	}
	i := *r.index
	return &i
}

// Select moves to index i of a log with historyLen entries
func (r *ReplaySelector) Select(i, historyLen int) error {
	if i < 0 || i >= historyLen {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrReplayIndexOutOfRange, i, historyLen-1)
	}
	r.index = &i
	return nil
}

// Clear returns to live mode
func (r *ReplaySelector) Clear() {
	r.index = nil
}
