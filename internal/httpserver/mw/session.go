package mw

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

const (
	// ProfileCookie identifies a browser profile. Favourites live under it.
	ProfileCookie = "glimpse_profile"
	// SessionCookie identifies a browsing session. Handoffs live under it.
	SessionCookie = "glimpse_session"

	profileMaxAge = 400 * 24 * 60 * 60
)

type ctxKey int

const (
	profileKey ctxKey = iota
	sessionKey
)

// Session makes sure every request carries a profile id and a session id,
// issuing cookies for missing or invalid ones, and stamps the session as
// active.
func Session(store kv.Store, secure bool, now func() time.Time, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID := cookieID(r, ProfileCookie)
			if profileID == "" {
				profileID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ProfileCookie,
					Value:    profileID,
					Path:     "/",
					MaxAge:   profileMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sessionID := cookieID(r, SessionCookie)
			if sessionID == "" {
				sessionID = uuid.NewString()
				// No MaxAge: the browser drops it when the session ends.
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if err := kv.TouchSession(r.Context(), store, sessionID, now()); err != nil {
				log.Warn("failed to stamp session activity",
					logger.String("session_id", sessionID),
					logger.Error(err))
			}

			next.ServeHTTP(w, r.WithContext(WithIDs(r.Context(), profileID, sessionID)))
		})
	}
}

// cookieID returns the cookie value if it is a well-formed UUID.
func cookieID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// WithIDs attaches a profile id and a session id to ctx.
func WithIDs(ctx context.Context, profileID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, profileKey, profileID)
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ProfileID returns the profile id set by Session, or "".
func ProfileID(ctx context.Context) string {
	id, _ := ctx.Value(profileKey).(string)
	return id
}

// SessionID returns the session id set by Session, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}
