package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

const (
	corsMethods = "GET, POST, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Accept"
	corsMaxAge  = "600"
)

// CORS answers cross-origin calls from the allowed origins. Origins listed by
// name get credentials, so the profile and session cookies travel. "*" lets
// any other origin call without credentials.
// If allowedOrigins is empty, it acts as a passthrough.
func CORS(allowedOrigins []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		log.Debug("CORS: no allowed origins, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			switch {
			case isListedOrigin(origin, allowedOrigins):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			case isListedOrigin("*", allowedOrigins):
				w.Header().Set("Access-Control-Allow-Origin", "*")
			default:
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", corsMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
				w.Header().Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isListedOrigin(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}
