package app

import "time"

const (
	RunSucceeded = "success"
	RunFailed    = "error"
)

// Run describes one invocation of the app: a CLI command or a server
// lifetime. Its ID tags every log record written during the run.
type Run struct {
	ID      string
	Command string
	Started time.Time
	Status  string
}

// NewRun starts a run for command at now. The status starts as success and
// is flipped by Fail.
func NewRun(command string, now time.Time) *Run {
	now = now.UTC()
	return &Run{
		ID:      now.Format("20060102T150405Z"),
		Command: command,
		Started: now,
		Status:  RunSucceeded,
	}
}

// Fail marks the run as failed.
func (r *Run) Fail() {
	r.Status = RunFailed
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.Started)
}
