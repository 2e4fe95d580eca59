package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/views"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/metrics"
)

type favouritesResponse struct {
	Artworks []domain.ArtworkRecord `json:"artworks"`
}

type savedResponse struct {
	ID    string `json:"id"`
	Saved bool   `json:"saved"`
}

// FavouritesPage renders the favourites list as HTML, or JSON on request.
func FavouritesPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := favouritesResponse{Artworks: favouritesFor(r, d).LoadAll(r.Context())}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		if err := views.Render(w, views.Favourites, resp); err != nil {
			d.Logger.Error("failed to render favourites page", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// ListFavourites returns the list in insertion order. ?format=yaml downloads
// it as a YAML document.
func ListFavourites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := favouritesFor(r, d).LoadAll(r.Context())

		if r.URL.Query().Get("format") != "yaml" {
			writeJSON(w, http.StatusOK, favouritesResponse{Artworks: list})
			return
		}

		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Content-Disposition", `attachment; filename="favourites.yaml"`)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			d.Logger.Warn("failed to export favourites", logger.Error(err))
		}
		_ = enc.Close()
	}
}

// SaveFavourite adds an artwork. A body carrying only an id saves the
// artwork handed off under that id; a full record is saved as given.
func SaveFavourite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

		var body domain.ArtworkRecord
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			writeError(w, http.StatusBadRequest, "expected a JSON body with a non-empty id")
			return
		}

		record := body
		if result, ok := handoffFor(r, d).Consume(r.Context(), body.ID); ok {
			record = result.ToArtworkRecord(body.ID, d.PlaceholderImage)
		} else if body.Title == "" {
			writeError(w, http.StatusNotFound, "no identified artwork with this id")
			return
		}

		added, err := favouritesFor(r, d).Add(r.Context(), record)
		if err != nil {
			// Storage failures never break the page: report the item as not saved.
			d.Logger.Warn("failed to save favourite",
				logger.String("artwork_id", record.ID),
				logger.Error(err))
			writeJSON(w, http.StatusOK, savedResponse{ID: record.ID, Saved: false})
			return
		}

		status := http.StatusOK
		if added {
			d.Metrics.FavouriteChanged(metrics.OpAdd)
			status = http.StatusCreated
		}
		writeJSON(w, status, savedResponse{ID: record.ID, Saved: true})
	}
}

// FavouriteStatus reports whether an artwork is saved.
func FavouriteStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, savedResponse{
			ID:    id,
			Saved: favouritesFor(r, d).Contains(r.Context(), id),
		})
	}
}

// DeleteFavourite removes an artwork. Removing an unknown id is not an error.
func DeleteFavourite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		removed, err := favouritesFor(r, d).Remove(r.Context(), id)
		if err != nil {
			d.Logger.Warn("failed to remove favourite",
				logger.String("artwork_id", id),
				logger.Error(err))
		}
		if removed {
			d.Metrics.FavouriteChanged(metrics.OpRemove)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearFavourites empties the list.
func ClearFavourites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := favouritesFor(r, d).Clear(r.Context()); err != nil {
			d.Logger.Warn("failed to clear favourites", logger.Error(err))
		} else {
			d.Metrics.FavouriteChanged(metrics.OpClear)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
