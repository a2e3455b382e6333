package tracker

import (
	"context"
	"testing"
	"time"

	"reelgen/internal/domain"
	"reelgen/internal/providers/bedrock"
)

func waitForStatus(t *testing.T, fx *fixture, id string, want domain.JobStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		job, err := fx.tracker.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if job.Status == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job stuck at %q, want %q", job.Status, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPollerDrivesJobToCompletion(t *testing.T) {
	remote := &fakeRemote{
		arn: "arn",
		steps: []statusStep{
			{report: bedrock.StatusReport{Status: domain.JobStatusPending}},
			{err: domain.ErrServiceUnavailable},
			{report: bedrock.StatusReport{Status: domain.JobStatusRunning}},
			{report: bedrock.StatusReport{Status: domain.JobStatusSucceeded, OutputURI: "s3://bucket/abc"}},
		},
		artifact: []byte("mp4"),
	}
	fx := newFixture(t, remote)
	ctx := context.Background()

	job, err := fx.tracker.Submit(ctx, []string{"nature/lake"}, "cinematic")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	poller := NewPoller(fx.tracker, 10*time.Millisecond, fx.tracker.logger)
	poller.Start(ctx)
	defer poller.Stop()

	waitForStatus(t, fx, job.ID, domain.JobStatusSucceeded)

	// Terminal jobs drop out of the sweep; the remote sees no further calls.
	settled := remote.calls()
	time.Sleep(50 * time.Millisecond)
	if remote.calls() != settled {
		t.Fatalf("remote polled %d more times after completion", remote.calls()-settled)
	}
}

func TestPollerStopsAtFailureToo(t *testing.T) {
	remote := &fakeRemote{
		arn: "arn",
		steps: []statusStep{
			{report: bedrock.StatusReport{Status: domain.JobStatusFailed, FailureReason: "quota exceeded"}},
		},
	}
	fx := newFixture(t, remote)
	ctx := context.Background()

	job, err := fx.tracker.Submit(ctx, []string{"nature/lake"}, "cinematic")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	poller := NewPoller(fx.tracker, 10*time.Millisecond, fx.tracker.logger)
	poller.Start(ctx)
	defer poller.Stop()

	waitForStatus(t, fx, job.ID, domain.JobStatusFailed)

	settled := remote.calls()
	time.Sleep(50 * time.Millisecond)
	if remote.calls() != settled {
		t.Fatal("failed job kept being polled")
	}
}

func TestPollerStopWaitsForSweep(t *testing.T) {
	fx := newFixture(t, &fakeRemote{arn: "arn"})

	poller := NewPoller(fx.tracker, 5*time.Millisecond, fx.tracker.logger)
	poller.Start(context.Background())
	poller.Start(context.Background()) // second start is a no-op
	time.Sleep(20 * time.Millisecond)
	poller.Stop()
	poller.Stop() // second stop is a no-op
}
