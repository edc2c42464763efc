package models

import "time"

// JobStatus represents the lifecycle state of a remote parse request.
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further status transitions may occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one tracked remote parsing request, from submission to terminal
// status. RequestID is the opaque identifier assigned by the remote service.
type Job struct {
	ID           string     `json:"id"`
	InputPath    string     `json:"input_path"`
	OutputTarget string     `json:"output_target"`
	RequestID    string     `json:"request_id,omitempty"`
	Status       JobStatus  `json:"status"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobEvent is a snapshot emitted whenever a job changes state, consumed by
// watch subscribers.
type JobEvent struct {
	Job Job `json:"job"`
}
