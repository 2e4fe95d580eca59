package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/views"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

// Home renders the upload page.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := views.Render(w, views.Home, nil); err != nil {
			d.Logger.Error("failed to render home page", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
