// Package health exposes the worker's liveness/readiness endpoint and
// mounts the Prometheus scrape handler behind the same router.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/riguy5000/ebay-hunter-worker/internal/ratelimit"
	"github.com/riguy5000/ebay-hunter-worker/internal/scheduler"
)

// Response is the JSON body served from GET /health.
type Response struct {
	Status            string    `json:"status"`
	Uptime            string    `json:"uptime"`
	LastPoll          time.Time `json:"lastPoll"`
	LastPollStatus    string    `json:"lastPollStatus"`
	APICallsToday     int       `json:"apiCallsToday"`
	APICallsRemaining int       `json:"apiCallsRemaining"`
	Timestamp         time.Time `json:"timestamp"`
}

// MetricsHandler serves the /metrics scrape endpoint.
type MetricsHandler interface {
	Handler() http.Handler
}

// NewHandler builds the router mounting /health and /metrics, wrapped in a
// permissive CORS policy matching the dashboard's cross-origin fetches.
func NewHandler(status *scheduler.Status, gov *ratelimit.Governor, m MetricsHandler) http.Handler {
	router := httprouter.New()
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		snap := status.Snapshot()
		resp := Response{
			Status:            snap.Status,
			Uptime:            snap.Uptime.String(),
			LastPoll:          snap.LastPoll,
			LastPollStatus:    snap.LastPollStatus,
			APICallsToday:     gov.CallsToday(),
			APICallsRemaining: gov.Remaining(),
			Timestamp:         time.Now(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	router.Handler(http.MethodGet, "/metrics", m.Handler())

	return cors.AllowAll().Handler(router)
}
