package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reelgen/internal/domain"
)

type jobSubmitRequest struct {
	Images []string `json:"images"`
	Style  string   `json:"style"`
}

type jobView struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	Style         string     `json:"style"`
	Images        []string   `json:"images"`
	VideoURL      string     `json:"video_url,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Abandoned     bool       `json:"abandoned,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

func viewOf(job *domain.Job) jobView {
	v := jobView{
		JobID:         job.ID,
		Status:        string(job.Status),
		Style:         job.Style,
		Images:        job.Images,
		FailureReason: job.FailureReason,
		Abandoned:     job.Abandoned,
		CreatedAt:     job.CreatedAt,
	}
	if job.Status == domain.JobStatusSucceeded {
		v.VideoURL = "/v1/jobs/" + job.ID + "/video"
	}
	if !job.LastCheckedAt.IsZero() {
		checked := job.LastCheckedAt
		v.LastCheckedAt = &checked
	}
	return v
}

func (a *App) JobsSubmit(w http.ResponseWriter, r *http.Request) {
	var req jobSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	job, err := a.Jobs.Submit(r.Context(), req.Images, req.Style)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	case errors.Is(err, domain.ErrUnknownStyle):
		a.error(w, http.StatusBadRequest, "unknown_style", err.Error())
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, domain.ErrServiceUnavailable):
		a.error(w, http.StatusServiceUnavailable, "service_unavailable", "generation service rejected the job, try again later")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("handlers: submitting job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to submit job")
		return
	}

	a.json(w, http.StatusAccepted, viewOf(job))
}

func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Jobs.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: listing jobs")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	views := make([]jobView, len(jobs))
	for i, job := range jobs {
		views[i] = viewOf(job)
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": views})
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.Get(r.Context(), jobID)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: loading job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, viewOf(job))
}

// JobVideo streams the finished artifact. Jobs still in flight answer 409 so
// the page keeps its player hidden; failed jobs answer 422 with the remote
// failure reason.
func (a *App) JobVideo(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	ref, err := a.Jobs.Result(r.Context(), jobID)
	var failure *domain.FailureError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	case errors.Is(err, domain.ErrNotReady):
		a.error(w, http.StatusConflict, "not_ready", "video is still being generated")
		return
	case errors.As(err, &failure):
		a.error(w, http.StatusUnprocessableEntity, "job_failed", failure.Reason)
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("handlers: resolving job result")
		a.error(w, http.StatusInternalServerError, "internal", "failed to resolve result")
		return
	}

	path, err := a.Artifacts.Path(ref)
	if err != nil {
		a.Logger.Error().Err(err).Str("ref", ref).Msg("handlers: artifact missing from store")
		a.error(w, http.StatusInternalServerError, "internal", "artifact unavailable")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

func (a *App) JobAbandon(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	err := a.Jobs.Abandon(r.Context(), jobID)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: abandoning job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to abandon job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
