package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.CORS(d.CORSAllowedOrigins, d.Logger))
		r.Use(browser(d)...)

		r.With(mw.RateLimit(mw.RateLimitConfig{
			Burst:        d.IdentifyBurst,
			RefillPerMin: d.IdentifyRefillPerMin,
			MaxEntries:   10_000,
			TrustProxy:   d.TrustProxy,
		})).Post("/identify", handlers.Identify(d))

		r.Route("/favourites", func(r chi.Router) {
			r.Get("/", handlers.ListFavourites(d))
			r.Post("/", handlers.SaveFavourite(d))
			r.Delete("/", handlers.ClearFavourites(d))
			r.Get("/{id}", handlers.FavouriteStatus(d))
			r.Delete("/{id}", handlers.DeleteFavourite(d))
		})
	})
}
