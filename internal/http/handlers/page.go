package handlers

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed index.html
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "index.html"))

type pageData struct {
	RefreshMillis int
}

// Page renders the selection and playback UI. The page itself only talks to
// the local API; refreshing job status client-side never reaches the remote
// generation service.
func (a *App) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{RefreshMillis: 5000}); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: rendering page")
	}
}
