// Package tracker owns the authoritative local view of generation jobs. All
// job mutation funnels through it: submission, poll-driven status updates and
// local abandonment.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
	"reelgen/internal/providers/bedrock"
	"reelgen/internal/providers/storyboard"
	"reelgen/internal/storage"
	"reelgen/internal/styles"
)

// RemoteService is the external generation API: submit a job, query its
// status, fetch the finished artifact. *bedrock.Client satisfies it.
type RemoteService interface {
	StartVideoJob(ctx context.Context, shots []bedrock.Shot) (string, error)
	JobStatus(ctx context.Context, remoteID string) (bedrock.StatusReport, error)
	FetchArtifact(ctx context.Context, outputURI string) ([]byte, error)
}

// ShotBuilder turns an ordered image selection into the shot list for one
// submission. *storyboard.Builder satisfies it.
type ShotBuilder interface {
	Build(ctx context.Context, images []storyboard.SourceImage, tmpl styles.Template) ([]bedrock.Shot, error)
}

// ImageSource loads preset image bytes by their "category/name" reference.
// *gallery.Library satisfies it.
type ImageSource interface {
	Load(ref string) ([]byte, error)
}

// Store persists job records.
type Store interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context) ([]*domain.Job, error)
	Active(ctx context.Context) ([]*domain.Job, error)
}

// Tracker mediates between the job store and the remote generation service.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	remote    RemoteService
	shots     ShotBuilder
	images    ImageSource
	catalog   *styles.Catalog
	artifacts *storage.FileStore
	logger    infra.Logger
	now       func() time.Time
}

// New wires a Tracker from its collaborators.
func New(store Store, remote RemoteService, shots ShotBuilder, images ImageSource, catalog *styles.Catalog, artifacts *storage.FileStore, logger infra.Logger) *Tracker {
	return &Tracker{
		store:     store,
		remote:    remote,
		shots:     shots,
		images:    images,
		catalog:   catalog,
		artifacts: artifacts,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates the selection, builds the storyboard and forwards the job
// to the remote service. No job record exists until the remote call has been
// acknowledged; validation failures and remote errors leave no trace.
func (t *Tracker) Submit(ctx context.Context, imageRefs []string, style string) (*domain.Job, error) {
	if len(imageRefs) < domain.MinShotImages || len(imageRefs) > domain.MaxShotImages {
		return nil, fmt.Errorf("between %d and %d images required, got %d: %w",
			domain.MinShotImages, domain.MaxShotImages, len(imageRefs), domain.ErrInvalidInput)
	}
	tmpl, err := t.catalog.Resolve(style)
	if err != nil {
		return nil, err
	}

	sources := make([]storyboard.SourceImage, len(imageRefs))
	for i, ref := range imageRefs {
		data, err := t.images.Load(ref)
		if err != nil {
			return nil, err
		}
		sources[i] = storyboard.SourceImage{Ref: ref, Data: data}
	}

	shots, err := t.shots.Build(ctx, sources, tmpl)
	if err != nil {
		return nil, err
	}
	remoteID, err := t.remote.StartVideoJob(ctx, shots)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	job := &domain.Job{
		ID:        uuid.NewString(),
		RemoteID:  remoteID,
		Images:    append([]string(nil), imageRefs...),
		Style:     tmpl.Name,
		Status:    domain.JobStatusSubmitted,
		CreatedAt: t.now().UTC(),
	}
	if err := t.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	t.logger.Info().
		Str("job_id", job.ID).
		Str("style", job.Style).
		Int("images", len(imageRefs)).
		Msg("tracker: job submitted")

	return job, nil
}

// Poll refreshes one job from the remote service and applies the result under
// the forward-only transition rule. It is idempotent: terminal and abandoned
// jobs are returned as stored without touching the remote service, and a
// transient remote failure leaves the record unchanged for the next tick.
func (t *Tracker) Poll(ctx context.Context, id string) (*domain.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Active() {
		return job, nil
	}

	report, err := t.remote.JobStatus(ctx, job.RemoteID)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", id, err)
	}
	job.LastCheckedAt = t.now().UTC()

	switch report.Status {
	case domain.JobStatusSucceeded:
		// The terminal status is only recorded once the artifact is safely
		// on disk; a failed download reads as a transient error and the next
		// tick retries the whole step.
		ref, err := t.saveArtifact(ctx, job, report.OutputURI)
		if err != nil {
			return nil, err
		}
		job.ResultRef = ref
		job.Advance(domain.JobStatusSucceeded)
	case domain.JobStatusFailed:
		job.FailureReason = report.FailureReason
		job.Advance(domain.JobStatusFailed)
	default:
		job.Advance(report.Status)
	}

	if err := t.store.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persist poll result: %w", err)
	}

	if job.Status.IsTerminal() {
		t.logger.Info().
			Str("job_id", job.ID).
			Str("status", string(job.Status)).
			Str("result_ref", job.ResultRef).
			Msg("tracker: job reached terminal state")
	}
	return job, nil
}

func (t *Tracker) saveArtifact(ctx context.Context, job *domain.Job, outputURI string) (string, error) {
	if outputURI == "" {
		return "", fmt.Errorf("job %s completed without output location: %w", job.ID, domain.ErrServiceUnavailable)
	}
	data, err := t.remote.FetchArtifact(ctx, outputURI)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("videos/%s.mp4", job.ID)
	saved, err := t.artifacts.Write(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("cache artifact: %v: %w", err, domain.ErrServiceUnavailable)
	}
	return saved, nil
}

// Result returns the artifact reference for a succeeded job. Anything earlier
// in the lifecycle reads as ErrNotReady; a failed job carries the remote
// failure reason.
func (t *Tracker) Result(ctx context.Context, id string) (string, error) {
	job, err := t.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	switch job.Status {
	case domain.JobStatusSucceeded:
		return job.ResultRef, nil
	case domain.JobStatusFailed:
		return "", &domain.FailureError{Reason: job.FailureReason}
	default:
		return "", fmt.Errorf("job %s is %s: %w", id, job.Status, domain.ErrNotReady)
	}
}

// Abandon stops local tracking of a job. The remote job keeps running to its
// own terminal state; only the polling set shrinks.
func (t *Tracker) Abandon(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Abandoned {
		return nil
	}
	job.Abandoned = true
	if err := t.store.Update(ctx, job); err != nil {
		return fmt.Errorf("abandon job: %w", err)
	}
	t.logger.Info().Str("job_id", id).Msg("tracker: job abandoned")
	return nil
}

// Get returns a single tracked job.
func (t *Tracker) Get(ctx context.Context, id string) (*domain.Job, error) {
	return t.store.Get(ctx, id)
}

// List returns every tracked job.
func (t *Tracker) List(ctx context.Context) ([]*domain.Job, error) {
	return t.store.List(ctx)
}

// Active returns the jobs still worth polling.
func (t *Tracker) Active(ctx context.Context) ([]*domain.Job, error) {
	return t.store.Active(ctx)
}

// IsTransient reports whether the error should simply be retried on the next
// poll tick.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrServiceUnavailable)
}
