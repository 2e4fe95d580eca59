package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
)

const pingTimeout = 2 * time.Second

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Healthz reports liveness and build information.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz is ready once browser storage answers. The webhook is not checked:
// without it the app still serves favourites.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pingStorage(r.Context(), d); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra details the state of each dependency.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"storage": storageStatus(r.Context(), d),
			"webhook": webhookStatus(d),
		}
		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

// overallStatus is "critical" without storage, "degraded" without webhook.
func overallStatus(components map[string]componentStatus) string {
	if !components["storage"].OK {
		return "critical"
	}
	if !components["webhook"].OK {
		return "degraded"
	}
	return "ok"
}

func storageStatus(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "memory",
			Impact: "favourites-lost-on-restart",
		}
	}
	if err := pingStorage(ctx, d); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "redis",
			Impact: "favourites-and-handoff-unavailable",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "redis"}
}

func webhookStatus(d deps.Deps) componentStatus {
	if !d.WebhookConfigured {
		return componentStatus{
			OK:     false,
			Impact: "identification-disabled",
			Error:  "webhook URL not configured",
		}
	}
	return componentStatus{OK: true}
}

func pingStorage(ctx context.Context, d deps.Deps) error {
	if d.RedisClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return d.RedisClient.Ping(ctx).Err()
}
