package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/views"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	r.Handle("/static/*", views.Static())

	r.Group(func(r chi.Router) {
		r.Use(browser(d)...)
		r.Get("/", handlers.Home(d))
		r.Get("/artwork", handlers.Artwork(d))
		r.Get("/favourites", handlers.FavouritesPage(d))
	})
}
