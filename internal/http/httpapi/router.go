package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"reelgen/internal/http/handlers"
	"reelgen/internal/middleware"
)

// Options carries the request-level policy knobs.
type Options struct {
	CORSOrigins     []string
	SubmitPerMinute int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
	)
	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}

	r.Get("/", app.Page)
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/styles", app.Styles)
	r.Get("/v1/images", app.Images)
	r.Get("/static/images/{category}/{image}", app.PresetImage)
	r.Get("/v1/videos/archive", app.VideosArchive)

	r.Route("/v1/jobs", func(r chi.Router) {
		// Submissions cost real generation quota, everything else is local.
		r.With(middleware.RateLimit(opts.SubmitPerMinute, time.Minute)).
			Post("/", app.JobsSubmit)
		r.Get("/", app.JobsList)
		r.Get("/{job_id}", app.JobStatus)
		r.Get("/{job_id}/video", app.JobVideo)
		r.Delete("/{job_id}", app.JobAbandon)
	})

	return r
}
