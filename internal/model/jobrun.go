package model

import "time"

// JobRunStatus is the terminal state of one worker invocation record.
type JobRunStatus string

const (
	JobRunStatusRunning  JobRunStatus = "running"
	JobRunStatusComplete JobRunStatus = "complete"
	JobRunStatusFailed   JobRunStatus = "failed"
)

// JobRun is the observability record for one worker invocation: created when
// the invocation starts, finalized exactly once when it ends, never mutated
// afterward.
type JobRun struct {
	ID         string       `json:"id"`
	Worker     string       `json:"worker"`
	Status     JobRunStatus `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`

	ItemsFound     int    `json:"items_found"`
	ItemsProcessed int    `json:"items_processed"`
	ItemsFailed    int    `json:"items_failed"`
	Error          string `json:"error,omitempty"`
}
