package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/glimpse/internal/favourites"
	"github.com/MrSnakeDoc/glimpse/internal/handoff"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/mw"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// wantsJSON reports whether the client prefers JSON over HTML.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// favouritesFor returns the favourites of the request's profile.
func favouritesFor(r *http.Request, d deps.Deps) *favourites.Store {
	ns := kv.NewNamespace(d.Storage, kv.ProfilePrefix(mw.ProfileID(r.Context())))
	return favourites.New(ns, d.Logger)
}

// handoffFor returns the handoff space of the request's session.
func handoffFor(r *http.Request, d deps.Deps) *handoff.Store {
	ns := kv.NewNamespace(d.Storage, kv.SessionPrefix(mw.SessionID(r.Context())))
	return handoff.New(ns, d.Logger)
}
