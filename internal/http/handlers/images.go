package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reelgen/internal/domain"
	"reelgen/internal/gallery"
)

type imagesResponse struct {
	Categories []gallery.Category `json:"categories"`
}

func (a *App) Images(w http.ResponseWriter, r *http.Request) {
	categories, err := a.Gallery.Categories()
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: scanning image gallery")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list images")
		return
	}
	a.json(w, http.StatusOK, imagesResponse{Categories: categories})
}

// PresetImage serves one gallery file for the selection UI.
func (a *App) PresetImage(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := chi.URLParam(r, "image")

	path, err := a.Gallery.Path(category, name)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid image reference")
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("handlers: resolving preset image")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load image")
		return
	}
	http.ServeFile(w, r, path)
}
