package handlers

import (
	"net/http"
)

type stylesResponse struct {
	Styles     []string            `json:"styles"`
	Categories map[string][]string `json:"categories"`
}

func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, stylesResponse{
		Styles:     a.Catalog.Names(),
		Categories: a.Catalog.ByCategory(),
	})
}
