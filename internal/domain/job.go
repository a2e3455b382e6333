package domain

import "time"

// JobStatus enumerates the lifecycle states of a video generation job.
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// statusRank orders statuses so that transitions only ever move forward. A
// remote report of an earlier state than the one already recorded is stale
// and must be ignored.
var statusRank = map[JobStatus]int{
	JobStatusSubmitted: 0,
	JobStatusPending:   1,
	JobStatusRunning:   2,
	JobStatusSucceeded: 3,
	JobStatusFailed:    3,
}

// IsTerminal reports whether the status is a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// InProgress reports whether the remote service is still working on the job.
// Not every service distinguishes pending from running; both count.
func (s JobStatus) InProgress() bool {
	return s == JobStatusSubmitted || s == JobStatusPending || s == JobStatusRunning
}

// Valid reports whether the status is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Limits on the number of source images per submission. Nova Reel multi-shot
// accepts at most 8 shots.
const (
	MinShotImages = 1
	MaxShotImages = 8
)

// Job is one submitted video generation request and its tracked lifecycle.
// Jobs are created on submission and mutated only by the tracker in response
// to poll reports.
type Job struct {
	ID            string    `json:"id"`
	RemoteID      string    `json:"remote_id"`
	Images        []string  `json:"images"`
	Style         string    `json:"style"`
	Status        JobStatus `json:"status"`
	ResultRef     string    `json:"result_ref,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Abandoned     bool      `json:"abandoned,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastCheckedAt time.Time `json:"last_checked_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Advance applies a status reported by the remote service, enforcing the
// forward-only transition rule: terminal states are frozen and stale reports
// of an earlier state are dropped. It returns true when the stored status
// changed.
func (j *Job) Advance(next JobStatus) bool {
	if j.Status.IsTerminal() {
		return false
	}
	cur, ok := statusRank[j.Status]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok || nxt < cur {
		return false
	}
	if j.Status == next {
		return false
	}
	j.Status = next
	return true
}

// Active reports whether the job should still be polled: not terminal and not
// abandoned by the user.
func (j *Job) Active() bool {
	return !j.Abandoned && !j.Status.IsTerminal()
}
