package syncer

import "time"

// State is the phase of the sync state machine.
type State string

const (
	StateIdle    State = "idle"
	StatePushing State = "pushing"
	StatePulling State = "pulling"
	StateMerging State = "merging"
	StateFailed  State = "failed"
)

// Result summarises one pass.
type Result struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Watermark   time.Time

	Pushed       int
	Pulled       int
	Applied      int
	Unchanged    int
	KeptLocal    int
	Skipped      int
	Rejected     int
	MarkedSynced int
	Reaped       int64
}

func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Status is a point-in-time view of the engine.
type Status struct {
	State       State
	LastError   error
	LastSuccess time.Time
	LastResult  *Result
}
