package engine

import (
	"fmt"
	"time"
)

// State is the per-path initialization state. Transitions are monotonic
// except for the full reset that follows eviction.
type State int

const (
	StateNotStarted State = iota
	StateIndexing
	StateCategorizing
	StateAnalyzing
	StateComplete
	StateError
)

var stateNames = map[State]string{
	StateNotStarted:   "not_started",
	StateIndexing:     "indexing",
	StateCategorizing: "categorizing",
	StateAnalyzing:    "analyzing",
	StateComplete:     "complete",
	StateError:        "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InitStatus is the progress record for one path's pipeline run.
type InitStatus struct {
	State         State
	Progress      int // 0-100
	Stage         string
	Activity      string
	Processed     int
	Total         int
	StartedAt     time.Time
	EstimatedDone time.Time
	Error         string
}

// GetInitializationStatus returns the status record for path, creating a
// NotStarted record on first query. It never triggers any work.
func (e *Engine) GetInitializationStatus(path string) InitStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.statuses[path]
	if !ok {
		st = &InitStatus{State: StateNotStarted}
		e.statuses[path] = st
	}
	return *st
}

// setStatus mutates path's status record under the engine lock and refreshes
// the linearly-extrapolated completion estimate.
func (e *Engine) setStatus(path string, mutate func(*InitStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.statuses[path]
	if !ok {
		st = &InitStatus{State: StateNotStarted}
		e.statuses[path] = st
	}
	mutate(st)

	if st.Progress > 0 && st.Progress < 100 && !st.StartedAt.IsZero() {
		elapsed := time.Since(st.StartedAt)
		projected := time.Duration(int64(elapsed) * 100 / int64(st.Progress))
		st.EstimatedDone = st.StartedAt.Add(projected)
	}
}

func (e *Engine) failStatus(path string, err error) {
	e.setStatus(path, func(st *InitStatus) {
		st.State = StateError
		st.Activity = "pipeline failed"
		st.Error = err.Error()
	})
}
