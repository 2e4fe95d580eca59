package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/favourites"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/views"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

type artworkResponse struct {
	Artwork domain.ArtworkRecord `json:"artwork"`
	Saved   bool                 `json:"saved"`
}

// Artwork shows /artwork?id=<id>. The record comes from the session handoff
// first, then from the favourites. Anything else goes back to the upload page.
func Artwork(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		favs := favouritesFor(r, d)

		record, ok := resolveArtwork(r, d, favs, id)
		if !ok {
			d.Logger.Debug("artwork not found, back to upload",
				logger.String("artwork_id", id))
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		resp := artworkResponse{
			Artwork: record,
			Saved:   favs.Contains(r.Context(), id),
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		if err := views.Render(w, views.Artwork, resp); err != nil {
			d.Logger.Error("failed to render artwork page", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

func resolveArtwork(r *http.Request, d deps.Deps, favs *favourites.Store, id string) (domain.ArtworkRecord, bool) {
	if result, ok := handoffFor(r, d).Consume(r.Context(), id); ok {
		return result.ToArtworkRecord(id, d.PlaceholderImage), true
	}
	return favs.Get(r.Context(), id)
}
