package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"reelgen/internal/domain"
	"reelgen/internal/gallery"
	"reelgen/internal/infra"
	"reelgen/internal/storage"
	"reelgen/internal/styles"
)

// JobService is the tracker surface the handlers need.
type JobService interface {
	Submit(ctx context.Context, imageRefs []string, style string) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context) ([]*domain.Job, error)
	Result(ctx context.Context, id string) (string, error)
	Abandon(ctx context.Context, id string) error
}

type App struct {
	Jobs      JobService
	Catalog   *styles.Catalog
	Gallery   *gallery.Library
	Artifacts *storage.FileStore
	Logger    infra.Logger
}

func NewApp(jobs JobService, catalog *styles.Catalog, lib *gallery.Library, artifacts *storage.FileStore, logger infra.Logger) *App {
	return &App{Jobs: jobs, Catalog: catalog, Gallery: lib, Artifacts: artifacts, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": slug, "message": message},
	})
}
