package tracker

import (
	"context"
	"time"

	"reelgen/internal/infra"
)

// Poller drives the tracker on a fixed interval. A single goroutine walks the
// active job set once per tick, so no two polls for the same job ever run
// concurrently; ticks that would overlap a slow sweep are dropped by the
// ticker. Jobs leave the sweep on their own once they go terminal or are
// abandoned, so an empty active set costs one store query per tick.
type Poller struct {
	tracker  *Tracker
	interval time.Duration
	logger   infra.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a stopped poller.
func NewPoller(t *Tracker, interval time.Duration, logger infra.Logger) *Poller {
	return &Poller{tracker: t, interval: interval, logger: logger}
}

// Start launches the polling loop. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	if p.done != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go p.run(ctx)
	p.logger.Info().Dur("interval", p.interval).Msg("poller: started")
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (p *Poller) Stop() {
	if p.done == nil {
		return
	}
	p.cancel()
	<-p.done
	p.done = nil
	p.logger.Info().Msg("poller: stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	jobs, err := p.tracker.Active(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("poller: listing active jobs")
		return
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.tracker.Poll(ctx, job.ID); err != nil {
			if IsTransient(err) {
				p.logger.Debug().Err(err).Str("job_id", job.ID).Msg("poller: transient error, retrying next tick")
				continue
			}
			p.logger.Error().Err(err).Str("job_id", job.ID).Msg("poller: poll failed")
		}
	}
}
