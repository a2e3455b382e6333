package domain

import "testing"

func TestAdvanceForwardOnly(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		changed bool
		want    JobStatus
	}{
		{"submitted to pending", JobStatusSubmitted, JobStatusPending, true, JobStatusPending},
		{"submitted to running", JobStatusSubmitted, JobStatusRunning, true, JobStatusRunning},
		{"pending to running", JobStatusPending, JobStatusRunning, true, JobStatusRunning},
		{"running to succeeded", JobStatusRunning, JobStatusSucceeded, true, JobStatusSucceeded},
		{"running to failed", JobStatusRunning, JobStatusFailed, true, JobStatusFailed},
		{"stale pending after running", JobStatusRunning, JobStatusPending, false, JobStatusRunning},
		{"stale submitted after pending", JobStatusPending, JobStatusSubmitted, false, JobStatusPending},
		{"same status is a no-op", JobStatusRunning, JobStatusRunning, false, JobStatusRunning},
		{"succeeded is frozen", JobStatusSucceeded, JobStatusFailed, false, JobStatusSucceeded},
		{"failed is frozen", JobStatusFailed, JobStatusSucceeded, false, JobStatusFailed},
		{"terminal ignores in-progress", JobStatusSucceeded, JobStatusRunning, false, JobStatusSucceeded},
		{"unknown status ignored", JobStatusRunning, JobStatus("exploded"), false, JobStatusRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{Status: tt.from}
			if got := j.Advance(tt.to); got != tt.changed {
				t.Fatalf("Advance(%q) = %v, want %v", tt.to, got, tt.changed)
			}
			if j.Status != tt.want {
				t.Fatalf("Status = %q, want %q", j.Status, tt.want)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	if !JobStatusSucceeded.IsTerminal() || !JobStatusFailed.IsTerminal() {
		t.Fatal("succeeded and failed must be terminal")
	}
	for _, s := range []JobStatus{JobStatusSubmitted, JobStatusPending, JobStatusRunning} {
		if s.IsTerminal() {
			t.Fatalf("%q must not be terminal", s)
		}
		if !s.InProgress() {
			t.Fatalf("%q must count as in progress", s)
		}
	}
	if JobStatus("weird").Valid() {
		t.Fatal("unknown status must not be valid")
	}
}

func TestActive(t *testing.T) {
	j := &Job{Status: JobStatusRunning}
	if !j.Active() {
		t.Fatal("running job should be active")
	}
	j.Abandoned = true
	if j.Active() {
		t.Fatal("abandoned job should not be active")
	}
	j = &Job{Status: JobStatusFailed}
	if j.Active() {
		t.Fatal("terminal job should not be active")
	}
}
