package model

import "time"

// RunKind identifies which stage an execution run drove.
type RunKind string

const (
	RunCollect RunKind = "collect"
	RunAudit   RunKind = "audit"
)

// RunStatus is the terminal (or current) state of an execution run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Counters accumulates per-run totals. Failures local to one record
// increment Failed and never abort the run.
type Counters struct {
	Pages       int `json:"pages"`
	Seen        int `json:"seen"`
	New         int `json:"new"`
	Updated     int `json:"updated"`
	Published   int `json:"published"`
	Quarantined int `json:"quarantined"`
	Failed      int `json:"failed"`
}

// Run is one invocation of the collection or audit stage.
type Run struct {
	ID         string     `json:"id"`
	Kind       RunKind    `json:"kind"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Counters   Counters   `json:"counters"`
	Error      string     `json:"error,omitempty"`
}

// Duration returns the wall-clock time of a finished run, or the elapsed
// time so far for a running one.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
