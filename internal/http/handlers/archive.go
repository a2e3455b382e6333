package handlers

import (
	"fmt"
	"net/http"

	"reelgen/internal/domain"
	"reelgen/pkg/zip"
)

// VideosArchive bundles every finished video into one zip download. Jobs
// whose artifact has been cleaned from disk are skipped rather than failing
// the whole archive.
func (a *App) VideosArchive(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Jobs.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: listing jobs for archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	var entries []zip.Entry
	for _, job := range jobs {
		if job.Status != domain.JobStatusSucceeded || job.ResultRef == "" {
			continue
		}
		data, err := a.Artifacts.Read(job.ResultRef)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("handlers: artifact missing, skipped in archive")
			continue
		}
		entries = append(entries, zip.Entry{Filename: job.ID + ".mp4", Data: data})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no finished videos to archive")
		return
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: building archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="videos.zip"`)
	w.Header().Set("Content-Length", fmt.Sprint(len(archive)))
	_, _ = w.Write(archive)
}
