package handler

import (
	"net/http"
	"time"

	"github.com/zeni-bff/internal/pkg/clock"
)

// liveCounter reports the number of open realtime connections.
type liveCounter interface {
	Count() int
}

// HealthHandler answers the root liveness probe.
type HealthHandler struct {
	live  liveCounter
	clock clock.Clocker
}

func NewHealthHandler(live liveCounter, clk clock.Clocker) *HealthHandler {
	return &HealthHandler{live: live, clock: clk}
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LiveClients int       `json:"liveClients"`
}

func (h *HealthHandler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Timestamp:   h.clock.Now(),
		LiveClients: h.live.Count(),
	})
}
